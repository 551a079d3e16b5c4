package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = stocktest.D

func newUseCase(f *stocktest.Fixture, rec *events.Recorder) transfer.UseCase {
	return usecase.NewTransferUseCase(f.Store, stock.NewNopLocker(), rec, logger.NewNop())
}

func inventoryID(t *testing.T, f *stocktest.Fixture, bar *model.Bar, p *model.Product) string {
	t.Helper()
	var id string
	require.NoError(t, f.Store.View(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		row, err := tx.FindInventory(ctx, bar.ID, p.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, row)
		id = row.ID
		return nil
	}))
	return id
}

func TestTransfer_FanOutCreditsEachDestination(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "5")
	terrace, lounge, pool := f.Bar("Terrace"), f.Bar("Lounge"), f.Bar("Pool")
	f.Stock(terrace, p, "10")
	f.Stock(pool, p, "1")
	rec := &events.Recorder{}

	out, err := newUseCase(f, rec).Transfer(context.Background(), &dto.TransferInput{
		InventoryID:  inventoryID(t, f, terrace, p),
		Destinations: []string{lounge.ID, pool.ID, dto.GeneralStock},
		Amount:       d("2"),
	})
	require.NoError(t, err)

	assert.True(t, f.Qty(model.BarInventoryPool(terrace.ID, p.ID)).Equal(d("4")))
	assert.True(t, f.Qty(model.BarInventoryPool(lounge.ID, p.ID)).Equal(d("2")))
	assert.True(t, f.Qty(model.BarInventoryPool(pool.ID, p.ID)).Equal(d("3")))
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("7")))

	require.Len(t, out.Transfers, 3)
	assert.Nil(t, out.Transfers[2].ToBarID)
	assert.Equal(t, terrace.ID, *out.Transfers[0].FromBarID)
	assert.Len(t, rec.OfType(events.TypeTransferRecorded), 3)
	assert.True(t, out.Source.Quantity.Equal(d("4")))
}

func TestTransfer_InsufficientSourceChangesNothing(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "5")
	terrace, lounge, pool := f.Bar("Terrace"), f.Bar("Lounge"), f.Bar("Pool")
	f.Stock(terrace, p, "3")
	rec := &events.Recorder{}

	_, err := newUseCase(f, rec).Transfer(context.Background(), &dto.TransferInput{
		ProductID:    p.ID,
		FromBarID:    terrace.ID,
		Destinations: []string{lounge.ID, pool.ID},
		Amount:       d("2"),
	})

	require.True(t, errors.Is(err, apperror.ErrInsufficientStock))
	assert.Equal(t, model.BarInventoryPool(terrace.ID, p.ID), *apperror.As(err).Pool)
	assert.True(t, f.Qty(model.BarInventoryPool(terrace.ID, p.ID)).Equal(d("3")))
	assert.True(t, f.Qty(model.BarInventoryPool(lounge.ID, p.ID)).IsZero())
	assert.Empty(t, rec.Events())
}

func TestTransfer_FromGeneralStock(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "5")
	terrace := f.Bar("Terrace")

	out, err := newUseCase(f, &events.Recorder{}).Transfer(context.Background(), &dto.TransferInput{
		ProductID:    p.ID,
		Destinations: []string{terrace.ID},
		Amount:       d("5"),
	})
	require.NoError(t, err)

	assert.True(t, f.Qty(model.GeneralStock(p.ID)).IsZero())
	assert.True(t, f.Qty(model.BarInventoryPool(terrace.ID, p.ID)).Equal(d("5")))
	assert.Nil(t, out.Transfers[0].InventoryID)
	assert.Nil(t, out.Transfers[0].FromBarID)
}

func TestTransfer_Validation(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "5")
	terrace := f.Bar("Terrace")
	f.Stock(terrace, p, "5")
	uc := newUseCase(f, &events.Recorder{})

	tests := []struct {
		name  string
		input dto.TransferInput
		want  error
	}{
		{"zero amount", dto.TransferInput{ProductID: p.ID, Destinations: []string{terrace.ID}, Amount: d("0")}, apperror.ErrInvalidArgument},
		{"no destinations", dto.TransferInput{ProductID: p.ID, Amount: d("1")}, apperror.ErrInvalidArgument},
		{"destination is source", dto.TransferInput{ProductID: p.ID, FromBarID: terrace.ID, Destinations: []string{terrace.ID}, Amount: d("1")}, apperror.ErrInvalidArgument},
		{"duplicate destination", dto.TransferInput{ProductID: p.ID, FromBarID: terrace.ID, Destinations: []string{"general", ""}, Amount: d("1")}, apperror.ErrInvalidArgument},
		{"unknown inventory", dto.TransferInput{InventoryID: "nope", Destinations: []string{"general"}, Amount: d("1")}, apperror.ErrInvalidReference},
		{"unknown destination bar", dto.TransferInput{ProductID: p.ID, FromBarID: terrace.ID, Destinations: []string{"nope"}, Amount: d("1")}, apperror.ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := uc.Transfer(context.Background(), &input)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.True(t, f.Total(p.ID).Equal(d("10")))
}

// Random transfer sequences, successful or not, never change a product's total.
func TestTransfer_ConservesTotal(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "20")
	bars := []*model.Bar{f.Bar("Terrace"), f.Bar("Lounge"), f.Bar("Pool"), f.Bar("Roof")}
	for _, b := range bars {
		f.Stock(b, p, "5")
	}
	uc := newUseCase(f, &events.Recorder{})
	before := f.Total(p.ID)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		from := ""
		if n := rng.Intn(len(bars) + 1); n < len(bars) {
			from = bars[n].ID
		}

		var dests []string
		for _, idx := range rng.Perm(len(bars) + 1)[:1+rng.Intn(3)] {
			dest := dto.GeneralStock
			if idx < len(bars) {
				dest = bars[idx].ID
			}
			if dest == from || (from == "" && dest == dto.GeneralStock) {
				continue
			}
			dests = append(dests, dest)
		}
		if len(dests) == 0 {
			continue
		}

		_, err := uc.Transfer(context.Background(), &dto.TransferInput{
			ProductID:    p.ID,
			FromBarID:    from,
			Destinations: dests,
			Amount:       decimal.NewFromInt(int64(1 + rng.Intn(6))),
		})
		if err != nil {
			require.True(t, errors.Is(err, apperror.ErrInsufficientStock), "unexpected error: %v", err)
		}

		require.True(t, f.Total(p.ID).Equal(before), "total changed after transfer %d", i)
		require.False(t, f.Qty(model.GeneralStock(p.ID)).IsNegative())
		for _, b := range bars {
			require.False(t, f.Qty(model.BarInventoryPool(b.ID, p.ID)).IsNegative())
		}
	}
}
