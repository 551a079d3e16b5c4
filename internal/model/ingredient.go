package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	BaseModel
	Name             string          `db:"name" json:"name"`
	Unit             string          `db:"unit" json:"unit"` // mL, g, unit
	QuantityPerUnit  decimal.Decimal `db:"quantity_per_unit" json:"quantity_per_unit"`
	Stock            decimal.Decimal `db:"stock" json:"stock"`
	OriginalQuantity decimal.Decimal `db:"original_quantity" json:"original_quantity"`
	PurchasePrice    decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	ProductID        *string         `db:"product_id" json:"product_id"` // sellable product generated from this ingredient
	DeletedAt        *time.Time      `db:"deleted_at" json:"deleted_at"`
}

func (i *Ingredient) IsLive() bool {
	return i != nil && i.DeletedAt == nil
}

// NeedsRestock reports whether stock dropped below the baseline quantity.
func (i *Ingredient) NeedsRestock() bool {
	return i.Stock.LessThan(i.OriginalQuantity)
}
