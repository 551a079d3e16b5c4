package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.StockService"

type StockServiceServer interface {
	GetProductPools(ctx context.Context, req *dto.ProductPoolsInput) (*dto.ProductPools, error)
	ListRestockNeeded(ctx context.Context, req *dto.ListRestockInput) (*dto.RestockList, error)
	ListTransfers(ctx context.Context, req *dto.AuditFilter) (*dto.TransferPage, error)
	ListAdjustments(ctx context.Context, req *dto.AuditFilter) (*dto.AdjustmentPage, error)
	ClearTransfers(ctx context.Context, req *dto.ClearInput) (*dto.ClearResult, error)
	ClearAdjustments(ctx context.Context, req *dto.ClearInput) (*dto.ClearResult, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "GetProductPools", StockServiceServer.GetProductPools),
		grpcjson.Unary(ServiceName, "ListRestockNeeded", StockServiceServer.ListRestockNeeded),
		grpcjson.Unary(ServiceName, "ListTransfers", StockServiceServer.ListTransfers),
		grpcjson.Unary(ServiceName, "ListAdjustments", StockServiceServer.ListAdjustments),
		grpcjson.Unary(ServiceName, "ClearTransfers", StockServiceServer.ClearTransfers),
		grpcjson.Unary(ServiceName, "ClearAdjustments", StockServiceServer.ClearAdjustments),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/stock.proto",
}

type StockHandler struct {
	uc     stock.UseCase
	logger logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, log logger.ZapLogger) *StockHandler {
	return &StockHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *StockHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *StockHandler) GetProductPools(ctx context.Context, req *dto.ProductPoolsInput) (*dto.ProductPools, error) {
	out, err := h.uc.GetProductPools(ctx, req.ProductID)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *StockHandler) ListRestockNeeded(ctx context.Context, _ *dto.ListRestockInput) (*dto.RestockList, error) {
	items, err := h.uc.ListRestockNeeded(ctx)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return &dto.RestockList{Items: items}, nil
}

func (h *StockHandler) ListTransfers(ctx context.Context, req *dto.AuditFilter) (*dto.TransferPage, error) {
	out, err := h.uc.ListTransfers(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *StockHandler) ListAdjustments(ctx context.Context, req *dto.AuditFilter) (*dto.AdjustmentPage, error) {
	out, err := h.uc.ListAdjustments(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *StockHandler) ClearTransfers(ctx context.Context, _ *dto.ClearInput) (*dto.ClearResult, error) {
	removed, err := h.uc.ClearTransfers(ctx)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	h.logger.Info("clear transfers requested", zap.String("user_id", auth.GetUserID(ctx)))
	return &dto.ClearResult{Removed: removed}, nil
}

func (h *StockHandler) ClearAdjustments(ctx context.Context, _ *dto.ClearInput) (*dto.ClearResult, error) {
	removed, err := h.uc.ClearAdjustments(ctx)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	h.logger.Info("clear adjustments requested", zap.String("user_id", auth.GetUserID(ctx)))
	return &dto.ClearResult{Removed: removed}, nil
}
