package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/stocktest"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = stocktest.D

func TestConsume_BarCoversWholeAmount(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "10")
	bar := f.Bar("Terrace")
	f.Stock(bar, p, "6")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	out, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, BarID: bar.ID, Quantity: 5})
	require.NoError(t, err)

	require.Len(t, out.Deductions, 1)
	assert.Equal(t, model.BarInventoryPool(bar.ID, p.ID), out.Deductions[0].Pool)
	assert.True(t, f.Qty(model.BarInventoryPool(bar.ID, p.ID)).Equal(d("1")))
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("10")))
}

func TestConsume_FallsBackToGeneralForWholeAmount(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "10")
	bar := f.Bar("Terrace")
	f.Stock(bar, p, "3")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	out, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, BarID: bar.ID, Quantity: 5})
	require.NoError(t, err)

	assert.Equal(t, model.GeneralStock(p.ID), out.Deductions[0].Pool)
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("5")))
	assert.True(t, f.Qty(model.BarInventoryPool(bar.ID, p.ID)).Equal(d("3")))
}

func TestConsume_BothPoolsShort(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "4")
	bar := f.Bar("Terrace")
	f.Stock(bar, p, "3")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	_, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, BarID: bar.ID, Quantity: 5})

	require.True(t, errors.Is(err, apperror.ErrInsufficientStock))
	assert.Equal(t, model.GeneralStock(p.ID), *apperror.As(err).Pool)
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("4")))
	assert.True(t, f.Qty(model.BarInventoryPool(bar.ID, p.ID)).Equal(d("3")))
}

func TestConsume_WithoutBarUsesGeneral(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "2")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	_, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).IsZero())
}

func TestConsume_RecipeScaling(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	r := f.Recipe("Gin shot")
	f.RecipeLine(r, gin, "50")
	p := f.RecipeProduct("Gin shot", r)
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	out, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	assert.True(t, out.Composite)
	assert.True(t, f.Qty(model.IngredientStock(gin.ID)).Equal(d("850")))
	assert.True(t, out.Deductions[0].Amount.Equal(d("150")))
}

func TestConsume_IngredientShortfallIsAllOrNothing(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "1000")
	tonic := f.Ingredient("Tonic", "mL", "100")
	r := f.Recipe("Gin tonic")
	f.RecipeLine(r, gin, "50")
	f.RecipeLine(r, tonic, "150")
	p := f.RecipeProduct("Gin tonic", r)
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	_, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, Quantity: 1})

	require.True(t, errors.Is(err, apperror.ErrInsufficientIngredientStock))
	appErr := apperror.As(err)
	assert.Equal(t, tonic.ID, appErr.EntityID)
	assert.Equal(t, "Tonic", appErr.Name)
	assert.True(t, appErr.Requested.Equal(d("150")))
	assert.True(t, f.Qty(model.IngredientStock(gin.ID)).Equal(d("1000")))
	assert.True(t, f.Qty(model.IngredientStock(tonic.ID)).Equal(d("100")))
}

func TestConsume_CompositeIgnoresProductPools(t *testing.T) {
	f := stocktest.New(t)
	gin := f.Ingredient("Gin", "mL", "100")
	p := f.Product("Gin shot", "7")
	f.DirectLine(p, gin, "40")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	_, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	assert.True(t, f.Qty(model.IngredientStock(gin.ID)).Equal(d("20")))
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("7")))
}

func TestConsume_Validation(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "5")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	tests := []struct {
		name  string
		input dto.ConsumeInput
		want  error
	}{
		{"zero quantity", dto.ConsumeInput{ProductID: p.ID, Quantity: 0}, apperror.ErrInvalidArgument},
		{"missing product id", dto.ConsumeInput{Quantity: 1}, apperror.ErrInvalidArgument},
		{"unknown product", dto.ConsumeInput{ProductID: "nope", Quantity: 1}, apperror.ErrInvalidReference},
		{"unknown bar", dto.ConsumeInput{ProductID: p.ID, BarID: "nope", Quantity: 1}, apperror.ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := uc.Consume(context.Background(), &input)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).Equal(d("5")))
}

func TestConsume_ConcurrentCallsNeverOversell(t *testing.T) {
	f := stocktest.New(t)
	p := f.Product("Lager", "10")
	bar := f.Bar("Terrace")
	f.Stock(bar, p, "5")
	uc := usecase.NewDeductionUseCase(f.Store, logger.NewNop())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		consumed int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Consume(context.Background(), &dto.ConsumeInput{ProductID: p.ID, BarID: bar.ID, Quantity: 1})
			if err == nil {
				mu.Lock()
				consumed++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrInsufficientStock))
		}()
	}
	wg.Wait()

	assert.Equal(t, 15, consumed)
	assert.True(t, f.Qty(model.GeneralStock(p.ID)).IsZero())
	assert.True(t, f.Qty(model.BarInventoryPool(bar.ID, p.ID)).IsZero())
}
