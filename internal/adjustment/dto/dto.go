package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/shopspring/decimal"
)

// AdjustInput targets the bar row InventoryID when set, otherwise the general
// stock of ProductID. DestinationBarIDs is only valid for a re-entry into
// general stock.
type AdjustInput struct {
	Kind              model.AdjustmentKind `json:"kind"`
	InventoryID       string               `json:"inventory_id"`
	ProductID         string               `json:"product_id"`
	Amount            decimal.Decimal      `json:"amount"`
	Reason            string               `json:"reason"`
	DestinationBarIDs []string             `json:"destination_bar_ids"`
	CreatedBy         *string              `json:"-"`
}

type AdjustResult struct {
	ProductID   string                 `json:"product_id"`
	Adjustments []model.Adjustment     `json:"adjustments"`
	Transfers   []model.Transfer       `json:"transfers,omitempty"`
	Balances    []stockdto.PoolBalance `json:"balances"`
	// GeneralMirrored is false when a bar loss could not also be taken from
	// general stock because general stock held less than the loss.
	GeneralMirrored bool `json:"general_mirrored"`
}
