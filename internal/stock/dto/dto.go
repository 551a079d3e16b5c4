package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type ProductPools struct {
	ProductID    string               `json:"product_id"`
	GeneralStock decimal.Decimal      `json:"general_stock"`
	Bars         []model.BarInventory `json:"bars"`
	BarTotal     decimal.Decimal      `json:"bar_total"`
	Total        decimal.Decimal      `json:"total"`
}

type RestockItem struct {
	IngredientID     string          `json:"ingredient_id"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	Stock            decimal.Decimal `json:"stock"`
	OriginalQuantity decimal.Decimal `json:"original_quantity"`
	Missing          decimal.Decimal `json:"missing"`
}

// PoolBalance is a pool quantity observed right after a write.
type PoolBalance struct {
	Pool     model.PoolKey   `json:"pool"`
	Quantity decimal.Decimal `json:"quantity"`
}

type ProductPoolsInput struct {
	ProductID string `json:"product_id"`
}

type ListRestockInput struct{}

type RestockList struct {
	Items []RestockItem `json:"items"`
}

type TransferPage struct {
	Items    []model.Transfer `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type AdjustmentPage struct {
	Items    []model.Adjustment `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

type ClearInput struct{}

type ClearResult struct {
	Removed int `json:"removed"`
}
