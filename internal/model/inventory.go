package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BarInventory is the (bar, product) stock pool. Rows are created on the first
// movement into a bar and are only removed when their product is retired.
type BarInventory struct {
	ID        string          `db:"id" json:"id"`
	BarID     string          `db:"bar_id" json:"bar_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type Transfer struct {
	ID          string          `db:"id" json:"id"`
	InventoryID *string         `db:"inventory_id" json:"inventory_id"` // nil when the source is general stock
	ProductID   string          `db:"product_id" json:"product_id"`
	FromBarID   *string         `db:"from_bar_id" json:"from_bar_id"`
	ToBarID     *string         `db:"to_bar_id" json:"to_bar_id"` // nil means general stock
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	CreatedBy   *string         `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type AdjustmentKind string

const (
	AdjustmentReentry AdjustmentKind = "reentry"
	AdjustmentLoss    AdjustmentKind = "loss"
)

func (k AdjustmentKind) Valid() bool {
	return k == AdjustmentReentry || k == AdjustmentLoss
}

type Adjustment struct {
	ID               string          `db:"id" json:"id"`
	InventoryID      *string         `db:"inventory_id" json:"inventory_id"` // nil when targeting general stock
	ProductID        string          `db:"product_id" json:"product_id"`
	Kind             AdjustmentKind  `db:"kind" json:"kind"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Reason           string          `db:"reason" json:"reason"`
	DestinationBarID *string         `db:"destination_bar_id" json:"destination_bar_id"`
	CreatedBy        *string         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
