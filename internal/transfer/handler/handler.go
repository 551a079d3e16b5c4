package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.TransferService"

type TransferServiceServer interface {
	Transfer(ctx context.Context, req *dto.TransferInput) (*dto.TransferResult, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "Transfer", TransferServiceServer.Transfer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/transfer.proto",
}

type TransferHandler struct {
	uc     transfer.UseCase
	logger logger.ZapLogger
}

func NewTransferHandler(uc transfer.UseCase, log logger.ZapLogger) *TransferHandler {
	return &TransferHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *TransferHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *TransferHandler) Transfer(ctx context.Context, req *dto.TransferInput) (*dto.TransferResult, error) {
	req.CreatedBy = auth.UserRef(ctx)

	out, err := h.uc.Transfer(ctx, req)
	if err != nil {
		h.logger.With(zap.String("merchant_id", auth.GetMerchantID(ctx))).Debug("transfer rejected",
			zap.String("inventory_id", req.InventoryID),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}
