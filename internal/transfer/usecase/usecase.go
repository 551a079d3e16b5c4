package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "omnipos-stock/transfer"

type transferUseCase struct {
	store     stock.Store
	locker    stock.Locker
	publisher events.Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewTransferUseCase(store stock.Store, locker stock.Locker, publisher events.Publisher, log logger.ZapLogger) transfer.UseCase {
	return &transferUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

type source struct {
	productID string
	barID     string
}

func (s source) key() model.PoolKey {
	if s.barID == "" {
		return model.GeneralStock(s.productID)
	}
	return model.BarInventoryPool(s.barID, s.productID)
}

// Transfer debits the source once per destination and credits each destination
// with the full amount, so the product's total across pools never changes.
func (uc *transferUseCase) Transfer(ctx context.Context, input *dto.TransferInput) (out *dto.TransferResult, err error) {
	ctx, span := observability.StartSpan(ctx, tracerName, "transfer.Transfer",
		attribute.String("inventory_id", input.InventoryID),
		attribute.String("product_id", input.ProductID),
		attribute.Int("destinations", len(input.Destinations)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !input.Amount.IsPositive() {
		return nil, apperror.InvalidArgument("amount must be positive, got %s", input.Amount)
	}
	if len(input.Destinations) == 0 {
		return nil, apperror.InvalidArgument("at least one destination is required")
	}

	var src source
	if err := uc.store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		src, err = resolveSource(ctx, tx, input)
		return err
	}); err != nil {
		return nil, err
	}

	destinations, err := destinationBars(src, input.Destinations)
	if err != nil {
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, stock.ProductLockKey(src.productID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		// Re-read inside the transaction; the row may have moved since the View.
		src, err := resolveSource(ctx, tx, input)
		if err != nil {
			return err
		}

		total := input.Amount.Mul(decimal.NewFromInt(int64(len(destinations))))
		remaining, err := tx.Apply(ctx, src.key(), total.Neg())
		if err != nil {
			return err
		}

		var inventoryID *string
		if src.barID != "" {
			row, err := tx.FindInventory(ctx, src.barID, src.productID)
			if err != nil {
				return err
			}
			inventoryID = &row.ID
		}

		out = &dto.TransferResult{
			ProductID: src.productID,
			Source:    stockdto.PoolBalance{Pool: src.key(), Quantity: remaining},
		}
		now := uc.now()
		for _, barID := range destinations {
			key := model.GeneralStock(src.productID)
			if barID != "" {
				key = model.BarInventoryPool(barID, src.productID)
			}
			qty, err := tx.Apply(ctx, key, input.Amount)
			if err != nil {
				return err
			}

			t := model.Transfer{
				ID:          uuid.New().String(),
				InventoryID: inventoryID,
				ProductID:   src.productID,
				FromBarID:   optional(src.barID),
				ToBarID:     optional(barID),
				Amount:      input.Amount,
				CreatedBy:   input.CreatedBy,
				CreatedAt:   now,
			}
			if err := tx.InsertTransfer(ctx, &t); err != nil {
				return err
			}
			out.Destinations = append(out.Destinations, stockdto.PoolBalance{Pool: key, Quantity: qty})
			out.Transfers = append(out.Transfers, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	published := make([]events.Event, 0, len(out.Transfers))
	for _, t := range out.Transfers {
		published = append(published, events.New(events.TypeTransferRecorded, t.ProductID, t))
	}
	events.PublishAfterCommit(ctx, uc.publisher, uc.logger, published...)

	uc.logger.Info("stock transferred",
		zap.String("product_id", out.ProductID),
		zap.String("source", out.Source.Pool.String()),
		zap.String("amount", input.Amount.String()),
		zap.Int("destinations", len(destinations)),
	)
	return out, nil
}

func resolveSource(ctx context.Context, tx stock.Tx, input *dto.TransferInput) (source, error) {
	if input.InventoryID != "" {
		row, err := tx.GetInventory(ctx, input.InventoryID)
		if err != nil {
			return source{}, err
		}
		if row == nil {
			return source{}, apperror.InvalidReference(apperror.EntityInventory, input.InventoryID)
		}
		if input.FromBarID != "" && input.FromBarID != row.BarID {
			return source{}, apperror.InvalidArgument("inventory %s belongs to bar %s, not %s", row.ID, row.BarID, input.FromBarID)
		}
		if input.ProductID != "" && input.ProductID != row.ProductID {
			return source{}, apperror.InvalidArgument("inventory %s holds product %s, not %s", row.ID, row.ProductID, input.ProductID)
		}
		return source{productID: row.ProductID, barID: row.BarID}, nil
	}

	if input.ProductID == "" {
		return source{}, apperror.InvalidArgument("inventory_id or product_id is required")
	}
	src := source{productID: input.ProductID}
	if input.FromBarID != "" && input.FromBarID != dto.GeneralStock {
		src.barID = input.FromBarID
	}
	return src, nil
}

// destinationBars maps the requested destinations to bar ids, "" meaning general stock.
func destinationBars(src source, requested []string) ([]string, error) {
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, dest := range requested {
		barID := dest
		if dest == dto.GeneralStock || dest == "" {
			barID = ""
		}
		if barID == src.barID {
			return nil, apperror.InvalidArgument("destination %s is the transfer source", src.key())
		}
		if _, dup := seen[barID]; dup {
			return nil, apperror.InvalidArgument("destination %q listed twice", dest)
		}
		seen[barID] = struct{}{}
		out = append(out, barID)
	}
	return out, nil
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
