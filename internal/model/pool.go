package model

import "fmt"

type PoolKind int

const (
	PoolGeneralStock PoolKind = iota + 1
	PoolBarInventory
	PoolIngredientStock
)

func (k PoolKind) String() string {
	switch k {
	case PoolGeneralStock:
		return "general_stock"
	case PoolBarInventory:
		return "bar_inventory"
	case PoolIngredientStock:
		return "ingredient_stock"
	default:
		return "unknown"
	}
}

// PoolKey identifies one quantity counter. Build it with GeneralStock,
// BarInventory or IngredientStock; the zero value is invalid.
type PoolKey struct {
	Kind         PoolKind `json:"kind"`
	ProductID    string   `json:"product_id,omitempty"`
	BarID        string   `json:"bar_id,omitempty"`
	IngredientID string   `json:"ingredient_id,omitempty"`
}

func GeneralStock(productID string) PoolKey {
	return PoolKey{Kind: PoolGeneralStock, ProductID: productID}
}

func BarInventoryPool(barID, productID string) PoolKey {
	return PoolKey{Kind: PoolBarInventory, BarID: barID, ProductID: productID}
}

func IngredientStock(ingredientID string) PoolKey {
	return PoolKey{Kind: PoolIngredientStock, IngredientID: ingredientID}
}

func (k PoolKey) Valid() bool {
	switch k.Kind {
	case PoolGeneralStock:
		return k.ProductID != "" && k.BarID == "" && k.IngredientID == ""
	case PoolBarInventory:
		return k.ProductID != "" && k.BarID != "" && k.IngredientID == ""
	case PoolIngredientStock:
		return k.IngredientID != "" && k.ProductID == "" && k.BarID == ""
	}
	return false
}

func (k PoolKey) String() string {
	switch k.Kind {
	case PoolGeneralStock:
		return fmt.Sprintf("general_stock(product=%s)", k.ProductID)
	case PoolBarInventory:
		return fmt.Sprintf("bar_inventory(bar=%s, product=%s)", k.BarID, k.ProductID)
	case PoolIngredientStock:
		return fmt.Sprintf("ingredient_stock(ingredient=%s)", k.IngredientID)
	default:
		return "invalid_pool"
	}
}
