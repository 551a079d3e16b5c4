package transfer

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

type UseCase interface {
	Transfer(ctx context.Context, input *dto.TransferInput) (*dto.TransferResult, error)
}
