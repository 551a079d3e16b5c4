package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plan(f *stocktest.Fixture, kind dto.TargetKind, id string) (*dto.CascadePlan, error) {
	var p *dto.CascadePlan
	err := f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		var err error
		p, err = catalog.Plan(ctx, tx, kind, id)
		return err
	})
	return p, err
}

func TestPlan_IngredientKeepsSiblingRecipes(t *testing.T) {
	f := stocktest.New(t)
	rum, lime := f.Ingredient("Rum", "mL", "1000"), f.Ingredient("Lime", "unit", "50")
	rumBottle := f.IngredientProduct("Rum bottle", "3", rum)
	mojito := f.Recipe("Mojito")
	rumLine := f.RecipeLine(mojito, rum, "50")
	f.RecipeLine(mojito, lime, "1")
	shot := f.Product("Rum shot", "0")
	shotLine := f.DirectLine(shot, rum, "40")

	p, err := plan(f, dto.TargetIngredient, rum.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{rum.ID}, p.Retire.IngredientIDs)
	assert.Equal(t, []string{rumBottle.ID}, p.Retire.ProductIDs)
	assert.Empty(t, p.Retire.RecipeIDs)
	assert.ElementsMatch(t, []string{rumLine.ID, shotLine.ID}, p.Retire.LinkIDs)
	assert.Equal(t, []string{rumBottle.ID}, p.RemoveInventoryFor)
}

func TestPlan_ProductReleasesItsSourceIngredient(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "700")
	ginBottle := f.IngredientProduct("Gin bottle", "2", gin)
	tonic := f.Ingredient("Tonic", "mL", "2000")
	other := f.Product("Gin tonic", "0")
	otherLine := f.DirectLine(other, gin, "50")
	ownLine := f.DirectLine(ginBottle, tonic, "10")
	r := f.Recipe("Garnish")
	attach := f.Attach(ginBottle, r, "1")

	p, err := plan(f, dto.TargetProduct, ginBottle.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{ginBottle.ID}, p.Retire.ProductIDs)
	assert.Empty(t, p.Retire.IngredientIDs)
	assert.Empty(t, p.Retire.RecipeIDs)
	assert.ElementsMatch(t, []string{ownLine.ID, attach.ID}, p.Retire.LinkIDs)
	assert.NotContains(t, p.Retire.LinkIDs, otherLine.ID)
	assert.Equal(t, []string{gin.ID}, p.ReleaseIngredients)
	assert.Equal(t, []string{ginBottle.ID}, p.AffectedProducts)
}

func TestPlan_RecipeRetiresGeneratedProductOnly(t *testing.T) {
	f := stocktest.New(t)
	mint := f.Ingredient("Mint", "g", "100")
	mojito := f.Recipe("Mojito")
	line := f.RecipeLine(mojito, mint, "5")
	generated := f.RecipeProduct("Mojito", mojito)
	combo := f.Product("Happy hour combo", "0")
	attach := f.Attach(combo, mojito, "2")

	p, err := plan(f, dto.TargetRecipe, mojito.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{mojito.ID}, p.Retire.RecipeIDs)
	assert.Equal(t, []string{generated.ID}, p.Retire.ProductIDs)
	assert.Empty(t, p.Retire.IngredientIDs)
	assert.ElementsMatch(t, []string{line.ID, attach.ID}, p.Retire.LinkIDs)
}

func TestPlan_ReportsOrderHistory(t *testing.T) {
	f := stocktest.New(t)
	lager, wine := f.Product("Lager", "5"), f.Product("Wine", "5")
	f.Store.RecordOrderLine(lager.ID)
	f.Store.RecordOrderLine(wine.ID)

	p, err := plan(f, dto.TargetProduct, lager.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{lager.ID}, p.HistoricalProducts)

	fresh := f.Product("Cider", "5")
	p, err = plan(f, dto.TargetProduct, fresh.ID)
	require.NoError(t, err)
	assert.Empty(t, p.HistoricalProducts)
}

func TestPlan_Errors(t *testing.T) {
	f := stocktest.New(t)
	lager := f.Product("Lager", "5")

	tests := []struct {
		name string
		kind dto.TargetKind
		id   string
		want error
	}{
		{"unknown kind", "bar", lager.ID, apperror.ErrInvalidArgument},
		{"empty id", dto.TargetProduct, "", apperror.ErrInvalidArgument},
		{"missing product", dto.TargetProduct, "nope", apperror.ErrInvalidReference},
		{"missing ingredient", dto.TargetIngredient, "nope", apperror.ErrInvalidReference},
		{"missing recipe", dto.TargetRecipe, "nope", apperror.ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan(f, tt.kind, tt.id)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
