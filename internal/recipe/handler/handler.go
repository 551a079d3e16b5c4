package handler

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/recipe"
	"github.com/fekuna/omnipos-stock-service/internal/recipe/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/grpcjson"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const ServiceName = "omnipos.stock.v1.RecipeService"

type RecipeServiceServer interface {
	CreateRecipe(ctx context.Context, req *dto.CreateRecipeInput) (*dto.RecipeDetail, error)
	AddRecipeIngredient(ctx context.Context, req *dto.AddRecipeIngredientInput) (*model.RecipeIngredient, error)
	AttachRecipe(ctx context.Context, req *dto.AttachRecipeInput) (*model.RecipeIngredient, error)
	LinkIngredient(ctx context.Context, req *dto.LinkIngredientInput) (*model.RecipeIngredient, error)
	Resolve(ctx context.Context, req *dto.ResolveInput) (*recipe.Resolution, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecipeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcjson.Unary(ServiceName, "CreateRecipe", RecipeServiceServer.CreateRecipe),
		grpcjson.Unary(ServiceName, "AddRecipeIngredient", RecipeServiceServer.AddRecipeIngredient),
		grpcjson.Unary(ServiceName, "AttachRecipe", RecipeServiceServer.AttachRecipe),
		grpcjson.Unary(ServiceName, "LinkIngredient", RecipeServiceServer.LinkIngredient),
		grpcjson.Unary(ServiceName, "Resolve", RecipeServiceServer.Resolve),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/stock/v1/recipe.proto",
}

type RecipeHandler struct {
	uc     recipe.UseCase
	logger logger.ZapLogger
}

func NewRecipeHandler(uc recipe.UseCase, log logger.ZapLogger) *RecipeHandler {
	return &RecipeHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *RecipeHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, h)
}

func (h *RecipeHandler) CreateRecipe(ctx context.Context, req *dto.CreateRecipeInput) (*dto.RecipeDetail, error) {
	out, err := h.uc.CreateRecipe(ctx, req)
	if err != nil {
		h.logger.Debug("create recipe rejected", zap.String("name", req.Name), zap.Error(err))
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *RecipeHandler) AddRecipeIngredient(ctx context.Context, req *dto.AddRecipeIngredientInput) (*model.RecipeIngredient, error) {
	out, err := h.uc.AddRecipeIngredient(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *RecipeHandler) AttachRecipe(ctx context.Context, req *dto.AttachRecipeInput) (*model.RecipeIngredient, error) {
	out, err := h.uc.AttachRecipe(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *RecipeHandler) LinkIngredient(ctx context.Context, req *dto.LinkIngredientInput) (*model.RecipeIngredient, error) {
	out, err := h.uc.LinkIngredient(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}

func (h *RecipeHandler) Resolve(ctx context.Context, req *dto.ResolveInput) (*recipe.Resolution, error) {
	out, err := h.uc.Resolve(ctx, req)
	if err != nil {
		return nil, apperror.ToStatus(err, auth.GetLanguage(ctx))
	}
	return out, nil
}
