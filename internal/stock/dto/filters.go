package dto

// LinkFilter selects RecipeIngredient rows. Non-empty fields are ANDed; each
// slice matches any of its values.
type LinkFilter struct {
	RecipeIDs      []string
	ProductIDs     []string
	IngredientIDs  []string
	IncludeDeleted bool
}

type AuditFilter struct {
	ProductID string `json:"product_id"`
	BarID     string `json:"bar_id"` // matches source or destination
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// SoftDeleteTarget lists every row a cascade retires in one statement batch.
type SoftDeleteTarget struct {
	ProductIDs    []string `json:"product_ids"`
	IngredientIDs []string `json:"ingredient_ids"`
	RecipeIDs     []string `json:"recipe_ids"`
	LinkIDs       []string `json:"link_ids"`
}

func (t SoftDeleteTarget) Empty() bool {
	return len(t.ProductIDs) == 0 && len(t.IngredientIDs) == 0 && len(t.RecipeIDs) == 0 && len(t.LinkIDs) == 0
}
