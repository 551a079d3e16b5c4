package stock

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

// UseCase serves pool and audit trail reads plus the audit "clear all".
type UseCase interface {
	GetProductPools(ctx context.Context, productID string) (*dto.ProductPools, error)
	ListRestockNeeded(ctx context.Context) ([]dto.RestockItem, error)
	ListTransfers(ctx context.Context, filter *dto.AuditFilter) (*dto.TransferPage, error)
	ListAdjustments(ctx context.Context, filter *dto.AuditFilter) (*dto.AdjustmentPage, error)
	ClearTransfers(ctx context.Context) (int, error)
	ClearAdjustments(ctx context.Context) (int, error)
}
