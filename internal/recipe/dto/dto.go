package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type RecipeDetail struct {
	Recipe  *model.Recipe            `json:"recipe"`
	Lines   []model.RecipeIngredient `json:"lines"`
	Product *model.Product           `json:"product,omitempty"`
}
