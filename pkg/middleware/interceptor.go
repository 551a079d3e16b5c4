package middleware

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const (
	MerchantIDKey contextKey = "merchant_id"
	UserIDKey     contextKey = "user_id"
	LanguageKey   contextKey = "language"
)

// ContextInterceptor copies caller identity and language from metadata into the context.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-merchant-id"); len(v) > 0 {
				ctx = context.WithValue(ctx, MerchantIDKey, v[0])
			}
			if v := md.Get("x-user-id"); len(v) > 0 {
				ctx = context.WithValue(ctx, UserIDKey, v[0])
			}
			if v := md.Get("accept-language"); len(v) > 0 {
				ctx = context.WithValue(ctx, LanguageKey, v[0])
			}
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its duration and converts panics into Internal errors.
func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in grpc handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("duration", time.Since(start)),
			}
			if code == codes.Internal || code == codes.Unknown {
				log.Error("grpc call failed", append(fields, zap.Error(err))...)
				return
			}
			log.Debug("grpc call", fields...)
		}()

		return handler(ctx, req)
	}
}
