package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/deduction"
	"github.com/fekuna/omnipos-stock-service/internal/deduction/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.DeductionService"

type DeductionServiceServer interface {
	Consume(ctx context.Context, req *dto.ConsumeInput) (*dto.ConsumeResult, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeductionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "Consume", DeductionServiceServer.Consume),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/deduction.proto",
}

type DeductionHandler struct {
	uc     deduction.UseCase
	logger logger.ZapLogger
}

func NewDeductionHandler(uc deduction.UseCase, log logger.ZapLogger) *DeductionHandler {
	return &DeductionHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *DeductionHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *DeductionHandler) Consume(ctx context.Context, req *dto.ConsumeInput) (*dto.ConsumeResult, error) {
	out, err := h.uc.Consume(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}
