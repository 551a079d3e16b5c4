package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	"github.com/fekuna/omnipos-stock-service/migrations"
	"github.com/fekuna/omnipos-stock-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPGStore(t *testing.T) *repository.PGStore {
	t.Helper()
	dsn := os.Getenv("STOCK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STOCK_TEST_DATABASE_URL not set")
	}

	db, err := postgres.Open(dsn, &postgres.Config{MaxOpenConns: 10, MaxIdleConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return repository.NewPGStore(db, 5, logger.NewNop())
}

func TestPGStore_ConcurrentDecrementsNeverGoNegative(t *testing.T) {
	store := newPGStore(t)
	ctx := context.Background()

	now := time.Now()
	p := &model.Product{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:         "Lager",
		GeneralStock: d("10"),
		Kind:         model.ProductKindSimple,
	}
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
		return tx.CreateProduct(ctx, p)
	}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, tx stock.Tx) error {
				_, err := tx.Apply(ctx, model.GeneralStock(p.ID), d("-1"))
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrInsufficientStock) || errors.Is(err, apperror.ErrConcurrencyConflict), err)
		}()
	}
	wg.Wait()

	var left decimal.Decimal
	require.NoError(t, store.View(ctx, func(ctx context.Context, tx stock.Tx) error {
		var err error
		left, err = tx.Quantity(ctx, model.GeneralStock(p.ID))
		return err
	}))

	assert.False(t, left.IsNegative())
	assert.True(t, left.Equal(d("10").Sub(decimal.NewFromInt(int64(succeeded)))))
}

func TestPGStore_DiagnosesMissingProduct(t *testing.T) {
	store := newPGStore(t)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx stock.Tx) error {
		_, err := tx.Apply(ctx, model.GeneralStock(uuid.New().String()), d("-1"))
		return err
	})
	assert.True(t, errors.Is(err, apperror.ErrInvalidReference))
}
