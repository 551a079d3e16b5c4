package usecase

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName      = "omnipos-stock/stock"
	defaultPageSize = 20
	maxPageSize     = 100
)

type stockUseCase struct {
	store  stock.Store
	logger logger.ZapLogger
}

func NewStockUseCase(store stock.Store, log logger.ZapLogger) stock.UseCase {
	return &stockUseCase{
		store:  store,
		logger: log,
	}
}

func (uc *stockUseCase) GetProductPools(ctx context.Context, productID string) (out *dto.ProductPools, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.GetProductPools",
		attribute.String("product_id", productID),
	)
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsLive() {
			return apperror.InvalidReference(apperror.EntityProduct, productID)
		}
		rows, err := tx.ListInventoryByProduct(ctx, productID)
		if err != nil {
			return err
		}

		out = &dto.ProductPools{
			ProductID:    productID,
			GeneralStock: p.GeneralStock,
			Bars:         rows,
			BarTotal:     decimal.Zero,
		}
		for _, r := range rows {
			out.BarTotal = out.BarTotal.Add(r.Quantity)
		}
		out.Total = out.GeneralStock.Add(out.BarTotal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRestockNeeded lists live ingredients whose stock fell below the
// quantity they were created with.
func (uc *stockUseCase) ListRestockNeeded(ctx context.Context) (out []dto.RestockItem, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.ListRestockNeeded")
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		ingredients, err := tx.ListIngredients(ctx, false)
		if err != nil {
			return err
		}
		out = []dto.RestockItem{}
		for i := range ingredients {
			ing := &ingredients[i]
			if !ing.NeedsRestock() {
				continue
			}
			out = append(out, dto.RestockItem{
				IngredientID:     ing.ID,
				Name:             ing.Name,
				Unit:             ing.Unit,
				Stock:            ing.Stock,
				OriginalQuantity: ing.OriginalQuantity,
				Missing:          ing.OriginalQuantity.Sub(ing.Stock),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) ListTransfers(ctx context.Context, filter *dto.AuditFilter) (out *dto.TransferPage, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.ListTransfers")
	defer func() { observability.EndSpan(span, err) }()

	f := normalize(filter)
	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		items, total, err := tx.ListTransfers(ctx, f)
		if err != nil {
			return err
		}
		out = &dto.TransferPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) ListAdjustments(ctx context.Context, filter *dto.AuditFilter) (out *dto.AdjustmentPage, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.ListAdjustments")
	defer func() { observability.EndSpan(span, err) }()

	f := normalize(filter)
	err = uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		items, total, err := tx.ListAdjustments(ctx, f)
		if err != nil {
			return err
		}
		out = &dto.AdjustmentPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) ClearTransfers(ctx context.Context) (removed int, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.ClearTransfers")
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		removed, err = tx.ClearTransfers(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.logger.Warn("transfer history cleared", zap.Int("removed", removed))
	return removed, nil
}

func (uc *stockUseCase) ClearAdjustments(ctx context.Context) (removed int, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "stock.ClearAdjustments")
	defer func() { observability.EndSpan(span, err) }()

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		removed, err = tx.ClearAdjustments(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.logger.Warn("adjustment history cleared", zap.Int("removed", removed))
	return removed, nil
}

func normalize(filter *dto.AuditFilter) dto.AuditFilter {
	f := dto.AuditFilter{}
	if filter != nil {
		f = *filter
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}
