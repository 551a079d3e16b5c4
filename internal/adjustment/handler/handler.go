package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/adjustment"
	"github.com/fekuna/omnipos-stock-service/internal/adjustment/dto"
	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.AdjustmentService"

type AdjustmentServiceServer interface {
	Adjust(ctx context.Context, req *dto.AdjustInput) (*dto.AdjustResult, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdjustmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "Adjust", AdjustmentServiceServer.Adjust),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/adjustment.proto",
}

type AdjustmentHandler struct {
	uc     adjustment.UseCase
	logger logger.ZapLogger
}

func NewAdjustmentHandler(uc adjustment.UseCase, log logger.ZapLogger) *AdjustmentHandler {
	return &AdjustmentHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *AdjustmentHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *AdjustmentHandler) Adjust(ctx context.Context, req *dto.AdjustInput) (*dto.AdjustResult, error) {
	req.CreatedBy = auth.UserRef(ctx)

	out, err := h.uc.Adjust(ctx, req)
	if err != nil {
		h.callerLogger(ctx).Debug("adjustment rejected",
			zap.String("kind", string(req.Kind)),
			zap.String("inventory_id", req.InventoryID),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *AdjustmentHandler) callerLogger(ctx context.Context) logger.ZapLogger {
	return h.logger.With(
		zap.String("merchant_id", auth.GetMerchantID(ctx)),
		zap.String("user_id", auth.GetUserID(ctx)),
	)
}
