package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	ProductKindSimple     ProductKind = "simple"
	ProductKindRecipe     ProductKind = "recipe"
	ProductKindIngredient ProductKind = "ingredient"
)

func (k ProductKind) Valid() bool {
	switch k {
	case ProductKindSimple, ProductKindRecipe, ProductKindIngredient:
		return true
	}
	return false
}

type Product struct {
	BaseModel
	Name          string          `db:"name" json:"name"`
	GeneralStock  decimal.Decimal `db:"general_stock" json:"general_stock"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	Kind          ProductKind     `db:"kind" json:"kind"`
	RecipeID      *string         `db:"recipe_id" json:"recipe_id"`         // set when generated from a recipe
	IngredientID  *string         `db:"ingredient_id" json:"ingredient_id"` // set when the ingredient is sold as is
	DeletedAt     *time.Time      `db:"deleted_at" json:"deleted_at"`
}

func (p *Product) IsLive() bool {
	return p != nil && p.DeletedAt == nil
}
