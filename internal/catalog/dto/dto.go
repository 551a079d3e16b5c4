package dto

import (
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

// TargetKind names the catalog entities that can be retired.
type TargetKind string

const (
	TargetProduct    TargetKind = "product"
	TargetIngredient TargetKind = "ingredient"
	TargetRecipe     TargetKind = "recipe"
)

func (k TargetKind) Valid() bool {
	switch k {
	case TargetProduct, TargetIngredient, TargetRecipe:
		return true
	}
	return false
}

// CascadePlan is everything a soft delete of one entity retires.
type CascadePlan struct {
	Kind     TargetKind `json:"kind"`
	TargetID string     `json:"target_id"`
	// AffectedProducts are the live products that can no longer be sold.
	AffectedProducts []string `json:"affected_products"`
	// HistoricalProducts is the subset referenced by past order lines.
	HistoricalProducts []string                  `json:"historical_products"`
	Retire             stockdto.SoftDeleteTarget `json:"retire"`
	RemoveInventoryFor []string                  `json:"remove_inventory_for"`
	// ReleaseIngredients stay live but lose the back-reference to their
	// retired sellable product.
	ReleaseIngredients []string `json:"release_ingredients"`
}

type SoftDeleteResult struct {
	Plan             *CascadePlan `json:"plan"`
	InventoryRemoved int          `json:"inventory_removed"`
}
