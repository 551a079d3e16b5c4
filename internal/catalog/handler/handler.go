package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/catalog/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.CatalogService"

type CatalogServiceServer interface {
	CreateProduct(ctx context.Context, req *dto.CreateProductInput) (*model.Product, error)
	CreateIngredient(ctx context.Context, req *dto.CreateIngredientInput) (*dto.CreateIngredientResult, error)
	CreateBar(ctx context.Context, req *dto.CreateBarInput) (*model.Bar, error)
	PlanSoftDelete(ctx context.Context, req *dto.SoftDeleteInput) (*dto.CascadePlan, error)
	SoftDelete(ctx context.Context, req *dto.SoftDeleteInput) (*dto.SoftDeleteResult, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "CreateProduct", CatalogServiceServer.CreateProduct),
		grpcjson.Unary(ServiceName, "CreateIngredient", CatalogServiceServer.CreateIngredient),
		grpcjson.Unary(ServiceName, "CreateBar", CatalogServiceServer.CreateBar),
		grpcjson.Unary(ServiceName, "PlanSoftDelete", CatalogServiceServer.PlanSoftDelete),
		grpcjson.Unary(ServiceName, "SoftDelete", CatalogServiceServer.SoftDelete),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/catalog.proto",
}

type CatalogHandler struct {
	uc     catalog.UseCase
	logger logger.ZapLogger
}

func NewCatalogHandler(uc catalog.UseCase, log logger.ZapLogger) *CatalogHandler {
	return &CatalogHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *CatalogHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *CatalogHandler) CreateProduct(ctx context.Context, req *dto.CreateProductInput) (*model.Product, error) {
	out, err := h.uc.CreateProduct(ctx, req)
	if err != nil {
		h.logger.Debug("create product rejected", zap.String("name", req.Name), zap.Error(err))
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *CatalogHandler) CreateIngredient(ctx context.Context, req *dto.CreateIngredientInput) (*dto.CreateIngredientResult, error) {
	out, err := h.uc.CreateIngredient(ctx, req)
	if err != nil {
		h.logger.Debug("create ingredient rejected", zap.String("name", req.Name), zap.Error(err))
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *CatalogHandler) CreateBar(ctx context.Context, req *dto.CreateBarInput) (*model.Bar, error) {
	out, err := h.uc.CreateBar(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *CatalogHandler) PlanSoftDelete(ctx context.Context, req *dto.SoftDeleteInput) (*dto.CascadePlan, error) {
	out, err := h.uc.PlanSoftDelete(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *CatalogHandler) SoftDelete(ctx context.Context, req *dto.SoftDeleteInput) (*dto.SoftDeleteResult, error) {
	out, err := h.uc.SoftDelete(ctx, req)
	if err != nil {
		h.logger.Debug("soft delete rejected",
			zap.String("kind", string(req.Kind)),
			zap.String("id", req.ID),
			zap.Error(err),
		)
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	h.logger.Info("soft delete requested",
		zap.String("kind", string(req.Kind)),
		zap.String("id", req.ID),
		zap.String("user_id", auth.GetUserID(ctx)),
	)
	return out, nil
}
