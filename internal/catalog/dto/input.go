package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	Name          string          `json:"name"`
	GeneralStock  decimal.Decimal `json:"general_stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
}

// SellableInput generates a product that sells the ingredient as is.
type SellableInput struct {
	Name         string          `json:"name"`
	GeneralStock decimal.Decimal `json:"general_stock"`
	SalePrice    decimal.Decimal `json:"sale_price"`
}

type CreateIngredientInput struct {
	Name            string          `json:"name"`
	Unit            string          `json:"unit"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	Stock           decimal.Decimal `json:"stock"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	Sellable        *SellableInput  `json:"sellable,omitempty"`
}

type CreateBarInput struct {
	Name string `json:"name"`
}

type SoftDeleteInput struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

type CreateIngredientResult struct {
	Ingredient *model.Ingredient `json:"ingredient"`
	Product    *model.Product    `json:"product,omitempty"`
}
