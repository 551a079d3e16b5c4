package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/adjustment"
	"github.com/fekuna/omnipos-stock-service/internal/adjustment/dto"
	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "omnipos-stock/adjustment"

type adjustmentUseCase struct {
	store     stock.Store
	locker    stock.Locker
	publisher events.Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewAdjustmentUseCase(store stock.Store, locker stock.Locker, publisher events.Publisher, log logger.ZapLogger) adjustment.UseCase {
	return &adjustmentUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

type target struct {
	productID string
	row       *model.BarInventory // nil for general stock
}

func (uc *adjustmentUseCase) Adjust(ctx context.Context, input *dto.AdjustInput) (out *dto.AdjustResult, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "adjustment.Adjust",
		attribute.String("kind", string(input.Kind)),
		attribute.String("inventory_id", input.InventoryID),
		attribute.String("product_id", input.ProductID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := validate(input); err != nil {
		return nil, err
	}

	var tgt target
	if err := uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		tgt, err = resolveTarget(ctx, tx, input)
		return err
	}); err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, stock.ProductLockKey(tgt.productID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		tgt, err := resolveTarget(ctx, tx, input)
		if err != nil {
			return err
		}
		out = &dto.AdjustResult{ProductID: tgt.productID, GeneralMirrored: true}

		switch {
		case input.Kind == model.AdjustmentReentry && tgt.row != nil:
			return uc.reentryToBar(ctx, tx, input, tgt, out)
		case input.Kind == model.AdjustmentReentry && len(input.DestinationBarIDs) > 0:
			return uc.reentryFanOut(ctx, tx, input, tgt, out)
		case input.Kind == model.AdjustmentReentry:
			return uc.reentryToGeneral(ctx, tx, input, tgt, out)
		case tgt.row != nil:
			return uc.lossFromBar(ctx, tx, input, tgt, out)
		default:
			return uc.lossFromGeneral(ctx, tx, input, tgt, out)
		}
	})
	if err != nil {
		return nil, err
	}

	published := make([]events.Event, 0, len(out.Adjustments)+len(out.Transfers))
	for _, a := range out.Adjustments {
		published = append(published, events.New(events.TypeAdjustmentRecorded, a.ProductID, a))
	}
	for _, t := range out.Transfers {
		published = append(published, events.New(events.TypeTransferRecorded, t.ProductID, t))
	}
	events.PublishAfterCommit(ctx, uc.publisher, uc.logger, published...)

	if !out.GeneralMirrored {
		uc.logger.Warn("bar loss exceeds general stock, general stock left unchanged",
			zap.String("product_id", out.ProductID),
			zap.String("inventory_id", input.InventoryID),
			zap.String("amount", input.Amount.String()),
		)
	}
	uc.logger.Info("stock adjusted",
		zap.String("kind", string(input.Kind)),
		zap.String("product_id", out.ProductID),
		zap.String("amount", input.Amount.String()),
		zap.Int("records", len(out.Adjustments)),
	)
	return out, nil
}

// validate runs before any store access so a rejected loss never touches a pool.
func validate(input *dto.AdjustInput) error {
	if !input.Kind.Valid() {
		return apperror.InvalidArgument("unknown adjustment kind %q", input.Kind)
	}
	if input.Kind == model.AdjustmentLoss && strings.TrimSpace(input.Reason) == "" {
		return apperror.MissingReason()
	}
	if !input.Amount.IsPositive() {
		return apperror.InvalidArgument("amount must be positive, got %s", input.Amount)
	}
	if len(input.DestinationBarIDs) > 0 {
		if input.Kind == model.AdjustmentLoss {
			return apperror.InvalidArgument("a loss cannot have destination bars")
		}
		if input.InventoryID != "" {
			return apperror.InvalidArgument("destination bars apply only to a re-entry into general stock")
		}
		seen := make(map[string]struct{}, len(input.DestinationBarIDs))
		for _, id := range input.DestinationBarIDs {
			if id == "" {
				return apperror.InvalidArgument("destination bar id is empty")
			}
			if _, dup := seen[id]; dup {
				return apperror.InvalidArgument("destination bar %s listed twice", id)
			}
			seen[id] = struct{}{}
		}
	}
	if input.InventoryID == "" && input.ProductID == "" {
		return apperror.InvalidArgument("inventory_id or product_id is required")
	}
	return nil
}

func resolveTarget(ctx context.Context, tx stock.Tx, input *dto.AdjustInput) (target, error) {
	if input.InventoryID == "" {
		return target{productID: input.ProductID}, nil
	}
	row, err := tx.GetInventory(ctx, input.InventoryID)
	if err != nil {
		return target{}, err
	}
	if row == nil {
		return target{}, apperror.InvalidReference(apperror.EntityInventory, input.InventoryID)
	}
	if input.ProductID != "" && input.ProductID != row.ProductID {
		return target{}, apperror.InvalidArgument("inventory %s holds product %s, not %s", row.ID, row.ProductID, input.ProductID)
	}
	return target{productID: row.ProductID, row: row}, nil
}

func (uc *adjustmentUseCase) apply(ctx context.Context, tx stock.Tx, out *dto.AdjustResult, key model.PoolKey, delta decimal.Decimal) error {
	qty, err := tx.Apply(ctx, key, delta)
	if err != nil {
		return err
	}
	out.Balances = append(out.Balances, stockdto.PoolBalance{Pool: key, Quantity: qty})
	return nil
}

func (uc *adjustmentUseCase) record(ctx context.Context, tx stock.Tx, out *dto.AdjustResult, input *dto.AdjustInput, amount decimal.Decimal, inventoryID, destinationBarID *string) error {
	a := model.Adjustment{
		ID:               uuid.New().String(),
		InventoryID:      inventoryID,
		ProductID:        out.ProductID,
		Kind:             input.Kind,
		Amount:           amount,
		Reason:           strings.TrimSpace(input.Reason),
		DestinationBarID: destinationBarID,
		CreatedBy:        input.CreatedBy,
		CreatedAt:        uc.now(),
	}
	if err := tx.InsertAdjustment(ctx, &a); err != nil {
		return err
	}
	out.Adjustments = append(out.Adjustments, a)
	return nil
}

// reentryToBar adds to the bar row and to general stock alike.
func (uc *adjustmentUseCase) reentryToBar(ctx context.Context, tx stock.Tx, input *dto.AdjustInput, tgt target, out *dto.AdjustResult) error {
	if err := uc.apply(ctx, tx, out, model.BarInventoryPool(tgt.row.BarID, tgt.productID), input.Amount); err != nil {
		return err
	}
	if err := uc.apply(ctx, tx, out, model.GeneralStock(tgt.productID), input.Amount); err != nil {
		return err
	}
	return uc.record(ctx, tx, out, input, input.Amount, &tgt.row.ID, nil)
}

func (uc *adjustmentUseCase) reentryToGeneral(ctx context.Context, tx stock.Tx, input *dto.AdjustInput, tgt target, out *dto.AdjustResult) error {
	if err := uc.apply(ctx, tx, out, model.GeneralStock(tgt.productID), input.Amount); err != nil {
		return err
	}
	return uc.record(ctx, tx, out, input, input.Amount, nil, nil)
}

// reentryFanOut credits general stock with amount per bar, then moves amount
// from general stock into each bar as a transfer. The re-entry itself is one
// adjustment for the whole credited total; the transfers carry the bars.
func (uc *adjustmentUseCase) reentryFanOut(ctx context.Context, tx stock.Tx, input *dto.AdjustInput, tgt target, out *dto.AdjustResult) error {
	general := model.GeneralStock(tgt.productID)
	total := input.Amount.Mul(decimal.NewFromInt(int64(len(input.DestinationBarIDs))))
	if _, err := tx.Apply(ctx, general, total); err != nil {
		return err
	}

	for _, barID := range input.DestinationBarIDs {
		if _, err := tx.Apply(ctx, general, input.Amount.Neg()); err != nil {
			return err
		}
		barKey := model.BarInventoryPool(barID, tgt.productID)
		if err := uc.apply(ctx, tx, out, barKey, input.Amount); err != nil {
			return err
		}

		dest := barID
		t := model.Transfer{
			ID:        uuid.New().String(),
			ProductID: tgt.productID,
			ToBarID:   &dest,
			Amount:    input.Amount,
			CreatedBy: input.CreatedBy,
			CreatedAt: uc.now(),
		}
		if err := tx.InsertTransfer(ctx, &t); err != nil {
			return err
		}
		out.Transfers = append(out.Transfers, t)
	}

	var destination *string
	if len(input.DestinationBarIDs) == 1 {
		destination = &input.DestinationBarIDs[0]
	}
	if err := uc.record(ctx, tx, out, input, total, nil, destination); err != nil {
		return err
	}

	qty, err := tx.Quantity(ctx, general)
	if err != nil {
		return err
	}
	out.Balances = append(out.Balances, stockdto.PoolBalance{Pool: general, Quantity: qty})
	return nil
}

// lossFromBar takes the loss from the bar row and, when general stock holds
// enough, from general stock as well.
func (uc *adjustmentUseCase) lossFromBar(ctx context.Context, tx stock.Tx, input *dto.AdjustInput, tgt target, out *dto.AdjustResult) error {
	if err := uc.apply(ctx, tx, out, model.BarInventoryPool(tgt.row.BarID, tgt.productID), input.Amount.Neg()); err != nil {
		return err
	}

	general := model.GeneralStock(tgt.productID)
	available, err := tx.Quantity(ctx, general)
	if err != nil {
		return err
	}
	if available.GreaterThanOrEqual(input.Amount) {
		if err := uc.apply(ctx, tx, out, general, input.Amount.Neg()); err != nil {
			return err
		}
	} else {
		out.GeneralMirrored = false
	}
	return uc.record(ctx, tx, out, input, input.Amount, &tgt.row.ID, nil)
}

func (uc *adjustmentUseCase) lossFromGeneral(ctx context.Context, tx stock.Tx, input *dto.AdjustInput, tgt target, out *dto.AdjustResult) error {
	if err := uc.apply(ctx, tx, out, model.GeneralStock(tgt.productID), input.Amount.Neg()); err != nil {
		return err
	}
	return uc.record(ctx, tx, out, input, input.Amount, nil, nil)
}
