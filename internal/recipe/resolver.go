package recipe

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/shopspring/decimal"
)

// Line is the total amount of one ingredient consumed by an order line.
type Line struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name"`
	Units        decimal.Decimal `json:"units"`
	StockUnits   decimal.Decimal `json:"stock_units"`
}

// Resolution says how selling a product consumes stock. A product that is not
// Composite draws from its own pools and has no Lines.
type Resolution struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Composite bool   `json:"composite"`
	Lines     []Line `json:"lines"`
}

// Expand resolves productID for quantity units. Lines are scaled by quantity,
// merged per ingredient and kept in the order the ingredients were first met.
// Retired ingredients and recipes are skipped.
func Expand(ctx context.Context, tx stock.Tx, productID string, quantity int) (*Resolution, error) {
	if quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", quantity)
	}

	product, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsLive() {
		return nil, apperror.InvalidReference(apperror.EntityProduct, productID)
	}

	links, err := tx.ListLinks(ctx, dto.LinkFilter{ProductIDs: []string{productID}})
	if err != nil {
		return nil, err
	}

	res := &Resolution{ProductID: productID, Quantity: quantity, Lines: []Line{}}
	acc := newAccumulator()
	n := decimal.NewFromInt(int64(quantity))

	attached := false
	for _, l := range links {
		switch l.Kind() {
		case model.LinkProductIngredient:
			res.Composite = true
			if err := acc.add(ctx, tx, *l.IngredientID, l.DeductQuantity.Mul(n), l.DeductStock.Mul(n)); err != nil {
				return nil, err
			}
		case model.LinkProductRecipe:
			res.Composite = true
			attached = true
			if err := acc.addRecipe(ctx, tx, *l.RecipeID, portions(l.DeductQuantity).Mul(n)); err != nil {
				return nil, err
			}
		}
	}

	// A product generated from a recipe consumes that recipe even without an
	// explicit attachment row.
	if !attached && product.RecipeID != nil && *product.RecipeID != "" {
		r, err := tx.GetRecipe(ctx, *product.RecipeID)
		if err != nil {
			return nil, err
		}
		if r.IsLive() {
			res.Composite = true
			if err := acc.addRecipe(ctx, tx, r.ID, n); err != nil {
				return nil, err
			}
		}
	}

	res.Lines = acc.lines()
	return res, nil
}

// portions of the recipe consumed per unit sold; an unset multiplier means one.
func portions(q decimal.Decimal) decimal.Decimal {
	if q.IsPositive() {
		return q
	}
	return decimal.NewFromInt(1)
}

type accumulator struct {
	order []string
	byID  map[string]*Line
}

func newAccumulator() *accumulator {
	return &accumulator{byID: map[string]*Line{}}
}

func (a *accumulator) addRecipe(ctx context.Context, tx stock.Tx, recipeID string, factor decimal.Decimal) error {
	r, err := tx.GetRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if !r.IsLive() {
		return nil
	}

	base, err := tx.ListLinks(ctx, dto.LinkFilter{RecipeIDs: []string{recipeID}})
	if err != nil {
		return err
	}
	for _, l := range base {
		if l.Kind() != model.LinkRecipeBase {
			continue
		}
		if err := a.add(ctx, tx, *l.IngredientID, l.DeductQuantity.Mul(factor), l.DeductStock.Mul(factor)); err != nil {
			return err
		}
	}
	return nil
}

func (a *accumulator) add(ctx context.Context, tx stock.Tx, ingredientID string, units, stockUnits decimal.Decimal) error {
	if line, ok := a.byID[ingredientID]; ok {
		line.Units = line.Units.Add(units)
		line.StockUnits = line.StockUnits.Add(stockUnits)
		return nil
	}

	ing, err := tx.GetIngredient(ctx, ingredientID)
	if err != nil {
		return err
	}
	if !ing.IsLive() {
		return nil
	}

	a.order = append(a.order, ingredientID)
	a.byID[ingredientID] = &Line{
		IngredientID: ingredientID,
		Name:         ing.Name,
		Units:        units,
		StockUnits:   stockUnits,
	}
	return nil
}

func (a *accumulator) lines() []Line {
	out := make([]Line, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byID[id])
	}
	return out
}
