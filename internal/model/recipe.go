package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecipeKind string

const (
	RecipeKindDrink RecipeKind = "drink"
	RecipeKindMeal  RecipeKind = "meal"
	RecipeKindInput RecipeKind = "input"
)

func (k RecipeKind) Valid() bool {
	switch k {
	case RecipeKindDrink, RecipeKindMeal, RecipeKindInput:
		return true
	}
	return false
}

type Recipe struct {
	BaseModel
	Name      string     `db:"name" json:"name"`
	Kind      RecipeKind `db:"kind" json:"kind"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

func (r *Recipe) IsLive() bool {
	return r != nil && r.DeletedAt == nil
}

type LinkKind int

const (
	LinkInvalid LinkKind = iota
	// LinkRecipeBase is an ingredient in a recipe's base formula.
	LinkRecipeBase
	// LinkProductIngredient deducts an ingredient directly when the product is sold.
	LinkProductIngredient
	// LinkProductRecipe attaches a whole recipe to a sellable product.
	LinkProductRecipe
)

func (k LinkKind) String() string {
	switch k {
	case LinkRecipeBase:
		return "recipe_base"
	case LinkProductIngredient:
		return "product_ingredient"
	case LinkProductRecipe:
		return "product_recipe"
	default:
		return "invalid"
	}
}

// RecipeIngredient is the deduction rule join row. Exactly one of the three
// reference shapes described by LinkKind is valid.
type RecipeIngredient struct {
	BaseModel
	RecipeID       *string         `db:"recipe_id" json:"recipe_id"`
	ProductID      *string         `db:"product_id" json:"product_id"`
	IngredientID   *string         `db:"ingredient_id" json:"ingredient_id"`
	DeductQuantity decimal.Decimal `db:"deduct_quantity" json:"deduct_quantity"`
	DeductStock    decimal.Decimal `db:"deduct_stock" json:"deduct_stock"`
	DeletedAt      *time.Time      `db:"deleted_at" json:"deleted_at"`
}

func (l *RecipeIngredient) Kind() LinkKind {
	hasRecipe := l.RecipeID != nil && *l.RecipeID != ""
	hasProduct := l.ProductID != nil && *l.ProductID != ""
	hasIngredient := l.IngredientID != nil && *l.IngredientID != ""

	switch {
	case hasRecipe && !hasProduct && hasIngredient:
		return LinkRecipeBase
	case !hasRecipe && hasProduct && hasIngredient:
		return LinkProductIngredient
	case hasRecipe && hasProduct && !hasIngredient:
		return LinkProductRecipe
	default:
		return LinkInvalid
	}
}

func (l *RecipeIngredient) IsLive() bool {
	return l != nil && l.DeletedAt == nil
}
