package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/recipe"
	"github.com/fekuna/omnipos-stock-service/internal/recipe/dto"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "omnipos-stock/recipe"

type recipeUseCase struct {
	store  stock.Store
	logger logger.ZapLogger
	now    func() time.Time
}

func NewRecipeUseCase(store stock.Store, log logger.ZapLogger) recipe.UseCase {
	return &recipeUseCase{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

func (uc *recipeUseCase) CreateRecipe(ctx context.Context, input *dto.CreateRecipeInput) (out *dto.RecipeDetail, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "recipe.CreateRecipe")
	defer func() { observability.EndSpan(span, err) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("recipe name is required")
	}
	if !input.Kind.Valid() {
		return nil, apperror.InvalidArgument("unknown recipe kind %q", input.Kind)
	}

	id := uuid.New().String()
	now := uc.now()

	// Duplicates are rejected here so resolution can assume one line per ingredient.
	seen := make(map[string]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if _, ok := seen[line.IngredientID]; ok {
			return nil, apperror.DuplicateLink(apperror.EntityRecipe, id, line.IngredientID)
		}
		seen[line.IngredientID] = struct{}{}
		if err := validateLine(line); err != nil {
			return nil, err
		}
	}

	r := &model.Recipe{
		BaseModel: model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Kind:      input.Kind,
	}
	out = &dto.RecipeDetail{Recipe: r, Lines: make([]model.RecipeIngredient, 0, len(input.Lines))}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		out.Lines = out.Lines[:0]
		if err := tx.CreateRecipe(ctx, r); err != nil {
			return err
		}
		for _, line := range input.Lines {
			if err := requireIngredient(ctx, tx, line.IngredientID); err != nil {
				return err
			}
			l := uc.newLink(&r.ID, nil, &line.IngredientID, line.DeductQuantity, line.DeductStock)
			if err := tx.CreateLink(ctx, l); err != nil {
				return err
			}
			out.Lines = append(out.Lines, *l)
		}

		if input.Product != nil {
			pname := strings.TrimSpace(input.Product.Name)
			if pname == "" {
				pname = name
			}
			p := &model.Product{
				BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
				Name:          pname,
				GeneralStock:  decimal.Zero,
				PurchasePrice: input.Product.PurchasePrice,
				SalePrice:     input.Product.SalePrice,
				Kind:          model.ProductKindRecipe,
				RecipeID:      &r.ID,
			}
			if err := tx.CreateProduct(ctx, p); err != nil {
				return err
			}
			out.Product = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("recipe created",
		zap.String("recipe_id", r.ID),
		zap.String("name", r.Name),
		zap.Int("lines", len(out.Lines)),
	)
	return out, nil
}

func (uc *recipeUseCase) AddRecipeIngredient(ctx context.Context, input *dto.AddRecipeIngredientInput) (out *model.RecipeIngredient, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "recipe.AddRecipeIngredient",
		attribute.String("recipe_id", input.RecipeID),
		attribute.String("ingredient_id", input.IngredientID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := validateLine(input.RecipeLineInput); err != nil {
		return nil, err
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		r, err := tx.GetRecipe(ctx, input.RecipeID)
		if err != nil {
			return err
		}
		if !r.IsLive() {
			return apperror.InvalidReference(apperror.EntityRecipe, input.RecipeID)
		}
		if err := requireIngredient(ctx, tx, input.IngredientID); err != nil {
			return err
		}

		existing, err := tx.ListLinks(ctx, stockdto.LinkFilter{
			RecipeIDs:     []string{input.RecipeID},
			IngredientIDs: []string{input.IngredientID},
		})
		if err != nil {
			return err
		}
		for _, l := range existing {
			if l.Kind() == model.LinkRecipeBase {
				return apperror.DuplicateLink(apperror.EntityRecipe, input.RecipeID, input.IngredientID)
			}
		}

		out = uc.newLink(&input.RecipeID, nil, &input.IngredientID, input.DeductQuantity, input.DeductStock)
		return tx.CreateLink(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *recipeUseCase) AttachRecipe(ctx context.Context, input *dto.AttachRecipeInput) (out *model.RecipeIngredient, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "recipe.AttachRecipe",
		attribute.String("product_id", input.ProductID),
		attribute.String("recipe_id", input.RecipeID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if input.Portions.IsNegative() {
		return nil, apperror.InvalidArgument("portions must not be negative")
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if err := requireProduct(ctx, tx, input.ProductID); err != nil {
			return err
		}
		r, err := tx.GetRecipe(ctx, input.RecipeID)
		if err != nil {
			return err
		}
		if !r.IsLive() {
			return apperror.InvalidReference(apperror.EntityRecipe, input.RecipeID)
		}

		existing, err := tx.ListLinks(ctx, stockdto.LinkFilter{
			ProductIDs: []string{input.ProductID},
			RecipeIDs:  []string{input.RecipeID},
		})
		if err != nil {
			return err
		}
		for _, l := range existing {
			if l.Kind() == model.LinkProductRecipe {
				return apperror.DuplicateLink(apperror.EntityProduct, input.ProductID, input.RecipeID)
			}
		}

		out = uc.newLink(&input.RecipeID, &input.ProductID, nil, input.Portions, input.Portions)
		return tx.CreateLink(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("recipe attached to product",
		zap.String("product_id", input.ProductID),
		zap.String("recipe_id", input.RecipeID),
	)
	return out, nil
}

func (uc *recipeUseCase) LinkIngredient(ctx context.Context, input *dto.LinkIngredientInput) (out *model.RecipeIngredient, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "recipe.LinkIngredient",
		attribute.String("product_id", input.ProductID),
		attribute.String("ingredient_id", input.IngredientID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := validateLine(input.RecipeLineInput); err != nil {
		return nil, err
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if err := requireProduct(ctx, tx, input.ProductID); err != nil {
			return err
		}
		if err := requireIngredient(ctx, tx, input.IngredientID); err != nil {
			return err
		}

		existing, err := tx.ListLinks(ctx, stockdto.LinkFilter{
			ProductIDs:    []string{input.ProductID},
			IngredientIDs: []string{input.IngredientID},
		})
		if err != nil {
			return err
		}
		for _, l := range existing {
			if l.Kind() == model.LinkProductIngredient {
				return apperror.DuplicateLink(apperror.EntityProduct, input.ProductID, input.IngredientID)
			}
		}

		out = uc.newLink(nil, &input.ProductID, &input.IngredientID, input.DeductQuantity, input.DeductStock)
		return tx.CreateLink(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *recipeUseCase) Resolve(ctx context.Context, input *dto.ResolveInput) (res *recipe.Resolution, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "recipe.Resolve",
		attribute.String("product_id", input.ProductID),
		attribute.Int("quantity", input.Quantity),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		res, err = recipe.Expand(ctx, tx, input.ProductID, input.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (uc *recipeUseCase) newLink(recipeID, productID, ingredientID *string, deductQuantity, deductStock decimal.Decimal) *model.RecipeIngredient {
	now := uc.now()
	return &model.RecipeIngredient{
		BaseModel:      model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		RecipeID:       recipeID,
		ProductID:      productID,
		IngredientID:   ingredientID,
		DeductQuantity: deductQuantity,
		DeductStock:    deductStock,
	}
}

func validateLine(line dto.RecipeLineInput) error {
	if line.IngredientID == "" {
		return apperror.InvalidArgument("ingredient_id is required")
	}
	if !line.DeductQuantity.IsPositive() {
		return apperror.InvalidArgument("deduct_quantity must be positive for ingredient %s", line.IngredientID)
	}
	if line.DeductStock.IsNegative() {
		return apperror.InvalidArgument("deduct_stock must not be negative for ingredient %s", line.IngredientID)
	}
	return nil
}

func requireIngredient(ctx context.Context, tx stock.Tx, id string) error {
	ing, err := tx.GetIngredient(ctx, id)
	if err != nil {
		return err
	}
	if !ing.IsLive() {
		return apperror.InvalidReference(apperror.EntityIngredient, id)
	}
	return nil
}

func requireProduct(ctx context.Context, tx stock.Tx, id string) error {
	p, err := tx.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsLive() {
		return apperror.InvalidReference(apperror.EntityProduct, id)
	}
	return nil
}
