package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/recipe/dto"
	"github.com/fekuna/omnipos-stock-service/internal/recipe/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = stocktest.D

func TestCreateRecipe_WithGeneratedProduct(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	tonic := f.Ingredient("Tonic", "mL", "1000")
	uc := usecase.NewRecipeUseCase(f.Store, logger.NewNop())

	out, err := uc.CreateRecipe(context.Background(), &dto.CreateRecipeInput{
		Name: "Gin tonic",
		Kind: model.RecipeKindDrink,
		Lines: []dto.RecipeLineInput{
			{IngredientID: gin.ID, DeductQuantity: d("50"), DeductStock: d("0.05")},
			{IngredientID: tonic.ID, DeductQuantity: d("150"), DeductStock: d("0.15")},
		},
		Product: &dto.GeneratedProductInput{SalePrice: d("8")},
	})
	require.NoError(t, err)
	require.Len(t, out.Lines, 2)
	require.NotNil(t, out.Product)
	assert.Equal(t, "Gin tonic", out.Product.Name)
	assert.Equal(t, out.Recipe.ID, *out.Product.RecipeID)

	res, err := uc.Resolve(context.Background(), &dto.ResolveInput{ProductID: out.Product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.True(t, res.Lines[1].Units.Equal(d("300")))
}

func TestCreateRecipe_RejectsDuplicateIngredient(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	uc := usecase.NewRecipeUseCase(f.Store, logger.NewNop())

	_, err := uc.CreateRecipe(context.Background(), &dto.CreateRecipeInput{
		Name: "Double gin",
		Kind: model.RecipeKindDrink,
		Lines: []dto.RecipeLineInput{
			{IngredientID: gin.ID, DeductQuantity: d("50")},
			{IngredientID: gin.ID, DeductQuantity: d("25")},
		},
	})

	require.True(t, errors.Is(err, apperror.ErrDuplicateLink))
	assert.Equal(t, gin.ID, apperror.As(err).Related)
}

func TestCreateRecipe_RollsBackOnRetiredIngredient(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	uc := usecase.NewRecipeUseCase(f.Store, logger.NewNop())

	_, err := uc.CreateRecipe(context.Background(), &dto.CreateRecipeInput{
		Name: "Ghost",
		Kind: model.RecipeKindDrink,
		Lines: []dto.RecipeLineInput{
			{IngredientID: gin.ID, DeductQuantity: d("50")},
			{IngredientID: "missing", DeductQuantity: d("25")},
		},
		Product: &dto.GeneratedProductInput{Name: "Ghost"},
	})
	assert.True(t, errors.Is(err, apperror.ErrInvalidReference))
}

func TestLinks_RejectDuplicates(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	r := f.Recipe("Martini")
	f.RecipeLine(r, gin, "60")
	p := f.Product("House martini", "0")
	uc := usecase.NewRecipeUseCase(f.Store, logger.NewNop())
	ctx := context.Background()

	_, err := uc.AddRecipeIngredient(ctx, &dto.AddRecipeIngredientInput{
		RecipeID:        r.ID,
		RecipeLineInput: dto.RecipeLineInput{IngredientID: gin.ID, DeductQuantity: d("10")},
	})
	assert.True(t, errors.Is(err, apperror.ErrDuplicateLink))

	_, err = uc.AttachRecipe(ctx, &dto.AttachRecipeInput{ProductID: p.ID, RecipeID: r.ID})
	require.NoError(t, err)
	_, err = uc.AttachRecipe(ctx, &dto.AttachRecipeInput{ProductID: p.ID, RecipeID: r.ID})
	assert.True(t, errors.Is(err, apperror.ErrDuplicateLink))

	_, err = uc.LinkIngredient(ctx, &dto.LinkIngredientInput{
		ProductID:       p.ID,
		RecipeLineInput: dto.RecipeLineInput{IngredientID: gin.ID, DeductQuantity: d("5")},
	})
	require.NoError(t, err)
	_, err = uc.LinkIngredient(ctx, &dto.LinkIngredientInput{
		ProductID:       p.ID,
		RecipeLineInput: dto.RecipeLineInput{IngredientID: gin.ID, DeductQuantity: d("5")},
	})
	assert.True(t, errors.Is(err, apperror.ErrDuplicateLink))

	res, err := uc.Resolve(ctx, &dto.ResolveInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Units.Equal(d("65")))
}

func TestAddRecipeIngredient_Validation(t *testing.T) {
	f := stocktest.New(t)
	r := f.Recipe("Martini")
	uc := usecase.NewRecipeUseCase(f.Store, logger.NewNop())

	_, err := uc.AddRecipeIngredient(context.Background(), &dto.AddRecipeIngredientInput{
		RecipeID:        r.ID,
		RecipeLineInput: dto.RecipeLineInput{IngredientID: "gin", DeductQuantity: d("0")},
	})
	assert.True(t, errors.Is(err, apperror.ErrInvalidArgument))
}
