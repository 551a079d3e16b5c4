package deduction

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
)

type UseCase interface {
	// Consume deducts one order line from the pools it draws on, all or nothing.
	Consume(ctx context.Context, input *dto.ConsumeInput) (*dto.ConsumeResult, error)
}
