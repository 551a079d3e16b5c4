package catalog

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

// Plan computes what retiring the target entity takes with it. It only reads
// through tx, so the same plan can be shown as a dry run or applied.
//
// The cascade goes one level deep: the target, the products generated from it
// through the ingredient/recipe back-references, and every link row that points
// at any of them. Recipes that merely use a retired ingredient, or products that
// merely have a retired recipe attached, stay live. Retiring an
// ingredient-as-product leaves its source ingredient live and only releases
// the back-reference.
func Plan(ctx context.Context, tx stock.Tx, kind dto.TargetKind, id string) (*dto.CascadePlan, error) {
	if !kind.Valid() {
		return nil, apperror.InvalidArgument("unknown delete target kind %q", kind)
	}
	if id == "" {
		return nil, apperror.InvalidArgument("id is required")
	}

	p := &planner{tx: tx, seen: map[string]struct{}{}}
	var err error
	switch kind {
	case dto.TargetProduct:
		err = p.product(ctx, id)
	case dto.TargetIngredient:
		err = p.ingredient(ctx, id)
	case dto.TargetRecipe:
		err = p.recipe(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if err := p.links(ctx); err != nil {
		return nil, err
	}

	plan := &dto.CascadePlan{
		Kind:               kind,
		TargetID:           id,
		AffectedProducts:   p.target.ProductIDs,
		HistoricalProducts: []string{},
		Retire:             p.target,
		RemoveInventoryFor: p.target.ProductIDs,
		ReleaseIngredients: p.release,
	}
	if len(plan.AffectedProducts) == 0 {
		return plan, nil
	}

	counts, err := tx.CountOrderLines(ctx, plan.AffectedProducts)
	if err != nil {
		return nil, err
	}
	for _, pid := range plan.AffectedProducts {
		if counts[pid] > 0 {
			plan.HistoricalProducts = append(plan.HistoricalProducts, pid)
		}
	}
	return plan, nil
}

type planner struct {
	tx     stock.Tx
	target  stockdto.SoftDeleteTarget
	release []string
	seen    map[string]struct{}
}

func (p *planner) once(id string) bool {
	if _, ok := p.seen[id]; ok {
		return false
	}
	p.seen[id] = struct{}{}
	return true
}

func (p *planner) product(ctx context.Context, id string) error {
	prod, err := p.tx.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !prod.IsLive() {
		return apperror.InvalidReference(apperror.EntityProduct, id)
	}
	p.addProduct(id)

	// Ingredients sold through this product are its source, not generated from it.
	sources, err := p.tx.ListIngredientsByProduct(ctx, id)
	if err != nil {
		return err
	}
	for _, ing := range sources {
		if ing.IsLive() && p.once("release:"+ing.ID) {
			p.release = append(p.release, ing.ID)
		}
	}
	return nil
}

func (p *planner) ingredient(ctx context.Context, id string) error {
	ing, err := p.tx.GetIngredient(ctx, id)
	if err != nil {
		return err
	}
	if !ing.IsLive() {
		return apperror.InvalidReference(apperror.EntityIngredient, id)
	}
	p.addIngredient(id)

	if ing.ProductID != nil {
		prod, err := p.tx.GetProduct(ctx, *ing.ProductID)
		if err != nil {
			return err
		}
		if prod.IsLive() {
			p.addProduct(prod.ID)
		}
	}
	generated, err := p.tx.ListProductsByIngredient(ctx, id)
	if err != nil {
		return err
	}
	p.addLiveProducts(generated)
	return nil
}

func (p *planner) recipe(ctx context.Context, id string) error {
	r, err := p.tx.GetRecipe(ctx, id)
	if err != nil {
		return err
	}
	if !r.IsLive() {
		return apperror.InvalidReference(apperror.EntityRecipe, id)
	}
	if p.once("recipe:" + id) {
		p.target.RecipeIDs = append(p.target.RecipeIDs, id)
	}

	generated, err := p.tx.ListProductsByRecipe(ctx, id)
	if err != nil {
		return err
	}
	p.addLiveProducts(generated)
	return nil
}

func (p *planner) addProduct(id string) {
	if p.once("product:" + id) {
		p.target.ProductIDs = append(p.target.ProductIDs, id)
	}
}

func (p *planner) addIngredient(id string) {
	if p.once("ingredient:" + id) {
		p.target.IngredientIDs = append(p.target.IngredientIDs, id)
	}
}

func (p *planner) addLiveProducts(products []model.Product) {
	for i := range products {
		if products[i].IsLive() {
			p.addProduct(products[i].ID)
		}
	}
}

// links collects the live link rows referencing any retired entity.
func (p *planner) links(ctx context.Context) error {
	filters := []stockdto.LinkFilter{}
	if len(p.target.ProductIDs) > 0 {
		filters = append(filters, stockdto.LinkFilter{ProductIDs: p.target.ProductIDs})
	}
	if len(p.target.IngredientIDs) > 0 {
		filters = append(filters, stockdto.LinkFilter{IngredientIDs: p.target.IngredientIDs})
	}
	if len(p.target.RecipeIDs) > 0 {
		filters = append(filters, stockdto.LinkFilter{RecipeIDs: p.target.RecipeIDs})
	}

	for _, f := range filters {
		links, err := p.tx.ListLinks(ctx, f)
		if err != nil {
			return err
		}
		for _, l := range links {
			if p.once("link:" + l.ID) {
				p.target.LinkIDs = append(p.target.LinkIDs, l.ID)
			}
		}
	}
	sort.Strings(p.target.LinkIDs)
	return nil
}
