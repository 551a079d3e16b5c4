package recipe

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/recipe/dto"
)

type UseCase interface {
	CreateRecipe(ctx context.Context, input *dto.CreateRecipeInput) (*dto.RecipeDetail, error)
	AddRecipeIngredient(ctx context.Context, input *dto.AddRecipeIngredientInput) (*model.RecipeIngredient, error)
	AttachRecipe(ctx context.Context, input *dto.AttachRecipeInput) (*model.RecipeIngredient, error)
	LinkIngredient(ctx context.Context, input *dto.LinkIngredientInput) (*model.RecipeIngredient, error)
	Resolve(ctx context.Context, input *dto.ResolveInput) (*Resolution, error)
}
