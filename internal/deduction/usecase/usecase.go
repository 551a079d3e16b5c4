package usecase

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/deduction"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/recipe"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "omnipos-stock/deduction"

type deductionUseCase struct {
	store  stock.Store
	logger logger.ZapLogger
}

func NewDeductionUseCase(store stock.Store, log logger.ZapLogger) deduction.UseCase {
	return &deductionUseCase{
		store:  store,
		logger: log,
	}
}

func (uc *deductionUseCase) Consume(ctx context.Context, input *dto.ConsumeInput) (out *dto.ConsumeResult, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "deduction.Consume",
		attribute.String("product_id", input.ProductID),
		attribute.String("bar_id", input.BarID),
		attribute.Int("quantity", input.Quantity),
	)
	defer func() { observability.EndSpan(span, err) }()

	if input.ProductID == "" {
		return nil, apperror.InvalidArgument("product_id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperror.InvalidArgument("quantity must be positive, got %d", input.Quantity)
	}

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		res, err := recipe.Expand(ctx, tx, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}

		out = &dto.ConsumeResult{
			ProductID: input.ProductID,
			BarID:     input.BarID,
			Quantity:  input.Quantity,
			Composite: res.Composite,
		}
		if res.Composite {
			out.Deductions, err = consumeIngredients(ctx, tx, res.Lines)
		} else {
			out.Deductions, err = consumeProduct(ctx, tx, input)
		}
		return err
	})
	if err != nil {
		uc.logger.Warn("consume failed",
			zap.String("order_id", input.OrderID),
			zap.String("product_id", input.ProductID),
			zap.String("bar_id", input.BarID),
			zap.Int("quantity", input.Quantity),
			zap.String("kind", apperror.KindOf(err).String()),
			zap.Error(err),
		)
		return nil, err
	}

	for _, d := range out.Deductions {
		uc.logger.Info("stock consumed",
			zap.String("order_id", input.OrderID),
			zap.String("product_id", input.ProductID),
			zap.String("pool", d.Pool.String()),
			zap.String("amount", d.Amount.String()),
			zap.String("remaining", d.Remaining.String()),
		)
	}
	if out.Composite && len(out.Deductions) == 0 {
		uc.logger.Warn("composite product resolved to no live ingredients", zap.String("product_id", input.ProductID))
	}
	return out, nil
}

// consumeIngredients checks every line before touching any pool so a shortfall
// on one ingredient leaves all of them unchanged.
func consumeIngredients(ctx context.Context, tx stock.Tx, lines []recipe.Line) ([]dto.Deduction, error) {
	for _, line := range lines {
		current, err := tx.Quantity(ctx, model.IngredientStock(line.IngredientID))
		if err != nil {
			return nil, err
		}
		if current.LessThan(line.Units) {
			return nil, apperror.InsufficientIngredientStock(line.IngredientID, line.Name, current, line.Units)
		}
	}

	deductions := make([]dto.Deduction, 0, len(lines))
	for _, line := range lines {
		if !line.Units.IsPositive() {
			continue
		}
		key := model.IngredientStock(line.IngredientID)
		remaining, err := tx.Apply(ctx, key, line.Units.Neg())
		if err != nil {
			return nil, err
		}
		deductions = append(deductions, dto.Deduction{Pool: key, Amount: line.Units, Remaining: remaining})
	}
	return deductions, nil
}

// consumeProduct takes the whole quantity from the bar when the bar holds
// enough, otherwise the whole quantity from general stock. It never splits.
func consumeProduct(ctx context.Context, tx stock.Tx, input *dto.ConsumeInput) ([]dto.Deduction, error) {
	amount := decimal.NewFromInt(int64(input.Quantity))

	key := model.GeneralStock(input.ProductID)
	if input.BarID != "" {
		barKey := model.BarInventoryPool(input.BarID, input.ProductID)
		available, err := tx.Quantity(ctx, barKey)
		if err != nil {
			return nil, err
		}
		if available.GreaterThanOrEqual(amount) {
			key = barKey
		}
	}

	remaining, err := tx.Apply(ctx, key, amount.Neg())
	if err != nil {
		return nil, err
	}
	return []dto.Deduction{{Pool: key, Amount: amount, Remaining: remaining}}, nil
}
