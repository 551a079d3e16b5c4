// Package stocktest seeds an in-memory store for engine tests.
package stocktest

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// D parses a decimal literal and panics on bad input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type Fixture struct {
	t     testing.TB
	Store *repository.MemoryStore
}

func New(t testing.TB) *Fixture {
	return &Fixture{t: t, Store: repository.NewMemoryStore()}
}

func (f *Fixture) write(fn func(ctx context.Context, tx stock.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.Store.WithinTx(context.Background(), fn))
}

func base() model.BaseModel {
	now := time.Now()
	return model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
}

// Product creates a simple product with the given general stock.
func (f *Fixture) Product(name, generalStock string) *model.Product {
	f.t.Helper()
	p := &model.Product{
		BaseModel:    base(),
		Name:         name,
		GeneralStock: D(generalStock),
		Kind:         model.ProductKindSimple,
	}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateProduct(ctx, p)
	})
	return p
}

// RecipeProduct creates the sellable product generated from recipe.
func (f *Fixture) RecipeProduct(name string, recipe *model.Recipe) *model.Product {
	f.t.Helper()
	p := &model.Product{
		BaseModel:    base(),
		Name:         name,
		GeneralStock: decimal.Zero,
		Kind:         model.ProductKindRecipe,
		RecipeID:     &recipe.ID,
	}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateProduct(ctx, p)
	})
	return p
}

// IngredientProduct creates the sellable product generated from ingredient and
// stores the back-reference on the ingredient.
func (f *Fixture) IngredientProduct(name, generalStock string, ing *model.Ingredient) *model.Product {
	f.t.Helper()
	p := &model.Product{
		BaseModel:    base(),
		Name:         name,
		GeneralStock: D(generalStock),
		Kind:         model.ProductKindIngredient,
		IngredientID: &ing.ID,
	}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		return tx.SetIngredientProduct(ctx, ing.ID, p.ID)
	})
	ing.ProductID = &p.ID
	return p
}

func (f *Fixture) Ingredient(name, unit, stockQty string) *model.Ingredient {
	f.t.Helper()
	i := &model.Ingredient{
		BaseModel:        base(),
		Name:             name,
		Unit:             unit,
		QuantityPerUnit:  decimal.NewFromInt(1),
		Stock:            D(stockQty),
		OriginalQuantity: D(stockQty),
	}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateIngredient(ctx, i)
	})
	return i
}

func (f *Fixture) Bar(name string) *model.Bar {
	f.t.Helper()
	b := &model.Bar{BaseModel: base(), Name: name}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateBar(ctx, b)
	})
	return b
}

func (f *Fixture) Recipe(name string) *model.Recipe {
	f.t.Helper()
	r := &model.Recipe{BaseModel: base(), Name: name, Kind: model.RecipeKindDrink}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateRecipe(ctx, r)
	})
	return r
}

// RecipeLine adds ingredient to recipe's base formula.
func (f *Fixture) RecipeLine(recipe *model.Recipe, ing *model.Ingredient, deductQuantity string) *model.RecipeIngredient {
	return f.link(&recipe.ID, nil, &ing.ID, deductQuantity)
}

// Attach links recipe to product with the given portions per unit sold.
func (f *Fixture) Attach(product *model.Product, recipe *model.Recipe, portions string) *model.RecipeIngredient {
	return f.link(&recipe.ID, &product.ID, nil, portions)
}

// DirectLine deducts ing whenever product is sold, with no recipe involved.
func (f *Fixture) DirectLine(product *model.Product, ing *model.Ingredient, deductQuantity string) *model.RecipeIngredient {
	return f.link(nil, &product.ID, &ing.ID, deductQuantity)
}

func (f *Fixture) link(recipeID, productID, ingredientID *string, qty string) *model.RecipeIngredient {
	f.t.Helper()
	l := &model.RecipeIngredient{
		BaseModel:      base(),
		RecipeID:       recipeID,
		ProductID:      productID,
		IngredientID:   ingredientID,
		DeductQuantity: D(qty),
		DeductStock:    D(qty),
	}
	f.write(func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateLink(ctx, l)
	})
	return l
}

// Stock sets the bar inventory row for (bar, product) to qty.
func (f *Fixture) Stock(bar *model.Bar, product *model.Product, qty string) {
	f.t.Helper()
	key := model.BarInventoryPool(bar.ID, product.ID)
	f.write(func(ctx context.Context, tx stock.Tx) error {
		current, err := tx.Quantity(ctx, key)
		if err != nil {
			return err
		}
		_, err = tx.Apply(ctx, key, D(qty).Sub(current))
		return err
	})
}

// Qty reads a pool; a missing bar row reads as zero.
func (f *Fixture) Qty(key model.PoolKey) decimal.Decimal {
	f.t.Helper()
	var q decimal.Decimal
	require.NoError(f.t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		var err error
		q, err = tx.Quantity(ctx, key)
		return err
	}))
	return q
}

// Total sums general stock and every bar row of a product.
func (f *Fixture) Total(productID string) decimal.Decimal {
	f.t.Helper()
	var total decimal.Decimal
	require.NoError(f.t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		total = p.GeneralStock
		rows, err := tx.ListInventoryByProduct(ctx, productID)
		if err != nil {
			return err
		}
		for _, r := range rows {
			total = total.Add(r.Quantity)
		}
		return nil
	}))
	return total
}

// Reload fetches the current state of a product, soft-deleted or not.
func (f *Fixture) Reload(productID string) *model.Product {
	f.t.Helper()
	var p *model.Product
	require.NoError(f.t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, productID)
		return err
	}))
	require.NotNil(f.t, p)
	return p
}

func (f *Fixture) ReloadIngredient(id string) *model.Ingredient {
	f.t.Helper()
	var i *model.Ingredient
	require.NoError(f.t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		var err error
		i, err = tx.GetIngredient(ctx, id)
		return err
	}))
	require.NotNil(f.t, i)
	return i
}

func (f *Fixture) ReloadRecipe(id string) *model.Recipe {
	f.t.Helper()
	var r *model.Recipe
	require.NoError(f.t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		var err error
		r, err = tx.GetRecipe(ctx, id)
		return err
	}))
	require.NotNil(f.t, r)
	return r
}
