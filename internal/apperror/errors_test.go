package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSentinelsMatchByKind(t *testing.T) {
	err := InsufficientStock(model.GeneralStock("p1"), decimal.NewFromInt(2), decimal.NewFromInt(5))
	wrapped := fmt.Errorf("consume: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))
	assert.False(t, errors.Is(wrapped, ErrInsufficientIngredientStock))
	assert.False(t, errors.Is(wrapped, ErrInvalidReference))
}

func TestInsufficientIngredientStock_IdentifiesIngredient(t *testing.T) {
	err := InsufficientIngredientStock("ing-1", "Rum", decimal.NewFromInt(100), decimal.NewFromInt(150))

	assert.Equal(t, KindInsufficientIngredientStock, err.Kind)
	require.NotNil(t, err.Pool)
	assert.Equal(t, model.IngredientStock("ing-1"), *err.Pool)
	assert.Contains(t, err.Error(), "Rum")
	assert.Contains(t, err.Error(), "ing-1")
}

func TestError_UnwrapCause(t *testing.T) {
	cause := errors.New("serialization failure")
	err := ConcurrencyConflict(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "transaction conflict, retries exhausted: serialization failure", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindMissingReason, KindOf(fmt.Errorf("adjust: %w", MissingReason())))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Nil(t, As(errors.New("boom")))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"stock", InsufficientStock(model.GeneralStock("p1"), decimal.Zero, decimal.NewFromInt(1)), codes.FailedPrecondition},
		{"ingredient", InsufficientIngredientStock("i1", "Gin", decimal.Zero, decimal.NewFromInt(1)), codes.FailedPrecondition},
		{"reference", InvalidReference(EntityProduct, "p1"), codes.NotFound},
		{"reason", MissingReason(), codes.InvalidArgument},
		{"argument", InvalidArgument("amount must be positive"), codes.InvalidArgument},
		{"duplicate", DuplicateLink(EntityRecipe, "r1", "i1"), codes.AlreadyExists},
		{"conflict", ConcurrencyConflict(nil), codes.Aborted},
		{"plain", errors.New("db down"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(ToStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
		})
	}
}

func TestToStatus_LocalizesMessage(t *testing.T) {
	err := InvalidReference(EntityBar, "bar-9")

	en, _ := status.FromError(ToStatus(err, "en"))
	es, _ := status.FromError(ToStatus(err, "es"))

	assert.Equal(t, "bar bar-9 does not exist or has been deleted", en.Message())
	assert.Equal(t, "bar bar-9 no existe o fue eliminado", es.Message())
}

func TestToStatus_PassesThroughStatusErrors(t *testing.T) {
	original := status.Error(codes.Unauthenticated, "no token")
	assert.Equal(t, original, ToStatus(original))
	assert.Nil(t, ToStatus(nil))
}
