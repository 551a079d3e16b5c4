package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

// ConsumeInput is one order line entering a stock-consuming state. An empty
// BarID sells from general stock only.
type ConsumeInput struct {
	ProductID string `json:"product_id"`
	BarID     string `json:"bar_id"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"order_id,omitempty"`
}

type Deduction struct {
	Pool      model.PoolKey   `json:"pool"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
}

type ConsumeResult struct {
	ProductID  string      `json:"product_id"`
	BarID      string      `json:"bar_id,omitempty"`
	Quantity   int         `json:"quantity"`
	Composite  bool        `json:"composite"`
	Deductions []Deduction `json:"deductions"`
}
