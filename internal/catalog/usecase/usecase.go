package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName          = "omnipos-stock/catalog"
	DefaultProductIndex = "products"
)

type catalogUseCase struct {
	store     stock.Store
	search    catalog.SearchIndex
	index     string
	publisher events.Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewCatalogUseCase builds the catalog use case. search may be nil when no
// search cluster is configured; products are kept in productIndex.
func NewCatalogUseCase(store stock.Store, search catalog.SearchIndex, productIndex string, publisher events.Publisher, log logger.ZapLogger) catalog.UseCase {
	if productIndex == "" {
		productIndex = DefaultProductIndex
	}
	return &catalogUseCase{
		store:     store,
		search:    search,
		index:     productIndex,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *catalogUseCase) base() model.BaseModel {
	now := uc.now()
	return model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
}

func (uc *catalogUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (out *model.Product, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "catalog.CreateProduct")
	defer func() { observability.EndSpan(span, err) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("product name is required")
	}
	if err := nonNegative("general_stock", input.GeneralStock); err != nil {
		return nil, err
	}

	out = &model.Product{
		BaseModel:     uc.base(),
		Name:          name,
		GeneralStock:  input.GeneralStock,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
		Kind:          model.ProductKindSimple,
	}
	if err := uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateProduct(ctx, out)
	}); err != nil {
		return nil, err
	}

	uc.indexProduct(ctx, out)
	uc.logger.Info("product created", zap.String("product_id", out.ID), zap.String("name", out.Name))
	return out, nil
}

func (uc *catalogUseCase) CreateIngredient(ctx context.Context, input *dto.CreateIngredientInput) (out *dto.CreateIngredientResult, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "catalog.CreateIngredient")
	defer func() { observability.EndSpan(span, err) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("ingredient name is required")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, apperror.InvalidArgument("ingredient unit is required")
	}
	if err := nonNegative("stock", input.Stock); err != nil {
		return nil, err
	}
	perUnit := input.QuantityPerUnit
	if perUnit.IsZero() {
		perUnit = decimal.NewFromInt(1)
	}
	if !perUnit.IsPositive() {
		return nil, apperror.InvalidArgument("quantity_per_unit must be positive, got %s", perUnit)
	}

	ing := &model.Ingredient{
		BaseModel:        uc.base(),
		Name:             name,
		Unit:             strings.TrimSpace(input.Unit),
		QuantityPerUnit:  perUnit,
		Stock:            input.Stock,
		OriginalQuantity: input.Stock,
		PurchasePrice:    input.PurchasePrice,
	}
	out = &dto.CreateIngredientResult{Ingredient: ing}

	var sellable *model.Product
	if s := input.Sellable; s != nil {
		if err := nonNegative("sellable.general_stock", s.GeneralStock); err != nil {
			return nil, err
		}
		pname := strings.TrimSpace(s.Name)
		if pname == "" {
			pname = name
		}
		sellable = &model.Product{
			BaseModel:     uc.base(),
			Name:          pname,
			GeneralStock:  s.GeneralStock,
			PurchasePrice: input.PurchasePrice,
			SalePrice:     s.SalePrice,
			Kind:          model.ProductKindIngredient,
			IngredientID:  &ing.ID,
		}
		ing.ProductID = &sellable.ID
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		if err := tx.CreateIngredient(ctx, ing); err != nil {
			return err
		}
		if sellable == nil {
			return nil
		}
		if err := tx.CreateProduct(ctx, sellable); err != nil {
			return err
		}
		return tx.SetIngredientProduct(ctx, ing.ID, sellable.ID)
	})
	if err != nil {
		return nil, err
	}

	if sellable != nil {
		out.Product = sellable
		uc.indexProduct(ctx, sellable)
	}
	uc.logger.Info("ingredient created",
		zap.String("ingredient_id", ing.ID),
		zap.String("name", ing.Name),
		zap.Bool("sellable", sellable != nil),
	)
	return out, nil
}

func (uc *catalogUseCase) CreateBar(ctx context.Context, input *dto.CreateBarInput) (out *model.Bar, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "catalog.CreateBar")
	defer func() { observability.EndSpan(span, err) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.InvalidArgument("bar name is required")
	}

	out = &model.Bar{BaseModel: uc.base(), Name: name}
	if err := uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateBar(ctx, out)
	}); err != nil {
		return nil, err
	}

	uc.logger.Info("bar created", zap.String("bar_id", out.ID), zap.String("name", out.Name))
	return out, nil
}

func (uc *catalogUseCase) PlanSoftDelete(ctx context.Context, input *dto.SoftDeleteInput) (plan *dto.CascadePlan, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "catalog.PlanSoftDelete",
		attribute.String("kind", string(input.Kind)),
		attribute.String("id", input.ID),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		plan, err = catalog.Plan(ctx, tx, input.Kind, input.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// SoftDelete retires the target and its cascade in one transaction. Order
// history never blocks the delete; it is only reported.
func (uc *catalogUseCase) SoftDelete(ctx context.Context, input *dto.SoftDeleteInput) (out *dto.SoftDeleteResult, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "catalog.SoftDelete",
		attribute.String("kind", string(input.Kind)),
		attribute.String("id", input.ID),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		plan, err := catalog.Plan(ctx, tx, input.Kind, input.ID)
		if err != nil {
			return err
		}
		if err := tx.SoftDelete(ctx, plan.Retire, uc.now()); err != nil {
			return err
		}
		for _, ingredientID := range plan.ReleaseIngredients {
			if err := tx.SetIngredientProduct(ctx, ingredientID, ""); err != nil {
				return err
			}
		}
		removed := 0
		if len(plan.RemoveInventoryFor) > 0 {
			removed, err = tx.DeleteInventoryByProducts(ctx, plan.RemoveInventoryFor)
			if err != nil {
				return err
			}
		}
		out = &dto.SoftDeleteResult{Plan: plan, InventoryRemoved: removed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan := out.Plan
	if len(plan.HistoricalProducts) > 0 {
		uc.logger.Warn("soft delete affects products referenced by order history",
			zap.String("kind", string(plan.Kind)),
			zap.String("id", plan.TargetID),
			zap.Strings("product_ids", plan.HistoricalProducts),
		)
	}

	events.PublishAfterCommit(ctx, uc.publisher, uc.logger, events.New(events.TypeSoftDeleted, plan.TargetID, plan))

	if uc.search != nil && len(plan.Retire.ProductIDs) > 0 {
		if err := uc.search.DeleteMany(ctx, uc.index, plan.Retire.ProductIDs); err != nil {
			uc.logger.Error("failed to remove retired products from search index", zap.Error(err))
		}
	}

	uc.logger.Info("catalog entity retired",
		zap.String("kind", string(plan.Kind)),
		zap.String("id", plan.TargetID),
		zap.Int("products", len(plan.Retire.ProductIDs)),
		zap.Int("ingredients", len(plan.Retire.IngredientIDs)),
		zap.Int("links", len(plan.Retire.LinkIDs)),
		zap.Int("inventory_removed", out.InventoryRemoved),
	)
	return out, nil
}

func (uc *catalogUseCase) indexProduct(ctx context.Context, p *model.Product) {
	if uc.search == nil {
		return
	}
	if err := uc.search.Index(ctx, uc.index, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return apperror.InvalidArgument("%s must not be negative, got %s", field, v)
	}
	return nil
}
