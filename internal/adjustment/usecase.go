package adjustment

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/adjustment/dto"
)

type UseCase interface {
	Adjust(ctx context.Context, input *dto.AdjustInput) (*dto.AdjustResult, error)
}
