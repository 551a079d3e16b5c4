package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/shopspring/decimal"
)

// GeneralStock is the destination (or source bar) value naming the product's general pool.
const GeneralStock = "general"

// TransferInput moves Amount of one product out of a source pool into every
// destination. The source is InventoryID when set, otherwise the FromBarID row
// of ProductID, otherwise the product's general stock.
type TransferInput struct {
	InventoryID  string          `json:"inventory_id"`
	ProductID    string          `json:"product_id"`
	FromBarID    string          `json:"from_bar_id"`
	Destinations []string        `json:"destinations"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedBy    *string         `json:"-"`
}

type TransferResult struct {
	ProductID    string                 `json:"product_id"`
	Source       stockdto.PoolBalance   `json:"source"`
	Destinations []stockdto.PoolBalance `json:"destinations"`
	Transfers    []model.Transfer       `json:"transfers"`
}
