package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/deduction"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/shopspring/decimal"
)

type deductionTestContext struct {
	t           *testing.T
	fixture     *stocktest.Fixture
	uc          deduction.UseCase
	bars        map[string]*model.Bar
	products    map[string]*model.Product
	ingredients map[string]*model.Ingredient
	recipes     map[string]*model.Recipe
	err         error
}

func (c *deductionTestContext) reset() {
	c.fixture = stocktest.New(c.t)
	c.uc = usecase.NewDeductionUseCase(c.fixture.Store, logger.NewNop())
	c.bars = map[string]*model.Bar{}
	c.products = map[string]*model.Product{}
	c.ingredients = map[string]*model.Ingredient{}
	c.recipes = map[string]*model.Recipe{}
	c.err = nil
}

func (c *deductionTestContext) aBar(name string) error {
	c.bars[name] = c.fixture.Bar(name)
	return nil
}

func (c *deductionTestContext) aProductWithGeneralStock(name string, qty int) error {
	c.products[name] = c.fixture.Product(name, fmt.Sprint(qty))
	return nil
}

func (c *deductionTestContext) barHoldsOf(bar string, qty int, product string) error {
	c.fixture.Stock(c.bars[bar], c.products[product], fmt.Sprint(qty))
	return nil
}

func (c *deductionTestContext) anIngredientWithStock(name string, qty int) error {
	c.ingredients[name] = c.fixture.Ingredient(name, "mL", fmt.Sprint(qty))
	return nil
}

func (c *deductionTestContext) aRecipeUsing(name string, qty int, ingredient string) error {
	r := c.fixture.Recipe(name)
	c.recipes[name] = r
	c.fixture.RecipeLine(r, c.ingredients[ingredient], fmt.Sprint(qty))
	return nil
}

func (c *deductionTestContext) recipeAlsoUses(name string, qty int, ingredient string) error {
	c.fixture.RecipeLine(c.recipes[name], c.ingredients[ingredient], fmt.Sprint(qty))
	return nil
}

func (c *deductionTestContext) aProductMadeFromRecipe(name, recipe string) error {
	c.products[name] = c.fixture.RecipeProduct(name, c.recipes[recipe])
	return nil
}

func (c *deductionTestContext) iConsumeOfAtBar(qty int, product, bar string) error {
	_, c.err = c.uc.Consume(context.Background(), &dto.ConsumeInput{
		ProductID: c.products[product].ID,
		BarID:     c.bars[bar].ID,
		Quantity:  qty,
	})
	return nil
}

func (c *deductionTestContext) theConsumptionSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success but got error: %v", c.err)
	}
	return nil
}

func (c *deductionTestContext) theConsumptionFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected consumption to fail but it succeeded")
	}
	if got := apperror.KindOf(c.err).String(); got != kind {
		return fmt.Errorf("expected %s, got %s (%v)", kind, got, c.err)
	}
	return nil
}

func (c *deductionTestContext) theFailureNamesIngredient(name string) error {
	appErr := apperror.As(c.err)
	if appErr == nil || appErr.Name != name || appErr.EntityID != c.ingredients[name].ID {
		return fmt.Errorf("expected failure on ingredient %q, got %v", name, c.err)
	}
	return nil
}

func (c *deductionTestContext) expect(key model.PoolKey, want int) error {
	got := c.fixture.Qty(key)
	if !got.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("expected %s to be %d, got %s", key, want, got)
	}
	return nil
}

func (c *deductionTestContext) barIsLeftWith(bar string, qty int, product string) error {
	return c.expect(model.BarInventoryPool(c.bars[bar].ID, c.products[product].ID), qty)
}

func (c *deductionTestContext) theGeneralStockOfIs(product string, qty int) error {
	return c.expect(model.GeneralStock(c.products[product].ID), qty)
}

func (c *deductionTestContext) theStockOfIngredientIs(ingredient string, qty int) error {
	return c.expect(model.IngredientStock(c.ingredients[ingredient].ID), qty)
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := &deductionTestContext{t: t}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		// Given
		ctx.Step(`^a bar "([^"]*)"$`, tc.aBar)
		ctx.Step(`^a product "([^"]*)" with general stock (\d+)$`, tc.aProductWithGeneralStock)
		ctx.Step(`^bar "([^"]*)" holds (\d+) of "([^"]*)"$`, tc.barHoldsOf)
		ctx.Step(`^an ingredient "([^"]*)" with stock (\d+)$`, tc.anIngredientWithStock)
		ctx.Step(`^a recipe "([^"]*)" using (\d+) of "([^"]*)"$`, tc.aRecipeUsing)
		ctx.Step(`^recipe "([^"]*)" also uses (\d+) of "([^"]*)"$`, tc.recipeAlsoUses)
		ctx.Step(`^a product "([^"]*)" made from recipe "([^"]*)"$`, tc.aProductMadeFromRecipe)

		// When
		ctx.Step(`^I consume (\d+) of "([^"]*)" at bar "([^"]*)"$`, tc.iConsumeOfAtBar)

		// Then
		ctx.Step(`^the consumption succeeds$`, tc.theConsumptionSucceeds)
		ctx.Step(`^the consumption fails with "([^"]*)"$`, tc.theConsumptionFailsWith)
		ctx.Step(`^the failure names ingredient "([^"]*)"$`, tc.theFailureNamesIngredient)
		ctx.Step(`^bar "([^"]*)" is left with (\d+) of "([^"]*)"$`, tc.barIsLeftWith)
		ctx.Step(`^the general stock of "([^"]*)" is (\d+)$`, tc.theGeneralStockOfIs)
		ctx.Step(`^the stock of ingredient "([^"]*)" is (\d+)$`, tc.theStockOfIngredientIs)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"deduction.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
