package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type RecipeLineInput struct {
	IngredientID   string          `json:"ingredient_id"`
	DeductQuantity decimal.Decimal `json:"deduct_quantity"`
	DeductStock    decimal.Decimal `json:"deduct_stock"`
}

// GeneratedProductInput asks CreateRecipe to also create the sellable product
// that carries the recipe back-reference.
type GeneratedProductInput struct {
	Name          string          `json:"name"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
}

type CreateRecipeInput struct {
	Name    string                 `json:"name"`
	Kind    model.RecipeKind       `json:"kind"`
	Lines   []RecipeLineInput      `json:"lines"`
	Product *GeneratedProductInput `json:"product,omitempty"`
}

type AddRecipeIngredientInput struct {
	RecipeID string `json:"recipe_id"`
	RecipeLineInput
}

type AttachRecipeInput struct {
	ProductID string          `json:"product_id"`
	RecipeID  string          `json:"recipe_id"`
	Portions  decimal.Decimal `json:"portions"`
}

type LinkIngredientInput struct {
	ProductID string `json:"product_id"`
	RecipeLineInput
}

type ResolveInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
