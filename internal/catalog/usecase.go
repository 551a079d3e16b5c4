package catalog

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	CreateIngredient(ctx context.Context, input *dto.CreateIngredientInput) (*dto.CreateIngredientResult, error)
	CreateBar(ctx context.Context, input *dto.CreateBarInput) (*model.Bar, error)
	PlanSoftDelete(ctx context.Context, input *dto.SoftDeleteInput) (*dto.CascadePlan, error)
	SoftDelete(ctx context.Context, input *dto.SoftDeleteInput) (*dto.SoftDeleteResult, error)
}

// SearchIndex is the part of the catalog search client the use case needs.
type SearchIndex interface {
	Index(ctx context.Context, index, id string, doc interface{}) error
	DeleteMany(ctx context.Context, index string, ids []string) error
}

// ProductIndexMapping is the mapping the products index is created with.
const ProductIndexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "name":          {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "kind":          {"type": "keyword"},
      "general_stock": {"type": "scaled_float", "scaling_factor": 10000},
      "sale_price":    {"type": "scaled_float", "scaling_factor": 10000},
      "recipe_id":     {"type": "keyword"},
      "ingredient_id": {"type": "keyword"},
      "created_at":    {"type": "date"}
    }
  }
}`
