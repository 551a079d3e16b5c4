package auth

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/pkg/middleware"
	"google.golang.org/grpc/metadata"
)

// GetMerchantID reads the merchant set by ContextInterceptor, falling back to metadata.
func GetMerchantID(ctx context.Context) string {
	return fromContext(ctx, middleware.MerchantIDKey, "x-merchant-id")
}

// GetUserID returns the operator id, or "" for anonymous callers such as the order listener.
func GetUserID(ctx context.Context) string {
	return fromContext(ctx, middleware.UserIDKey, "x-user-id")
}

func GetLanguage(ctx context.Context) string {
	return fromContext(ctx, middleware.LanguageKey, "accept-language")
}

// UserRef is GetUserID as a nullable column value.
func UserRef(ctx context.Context) *string {
	id := GetUserID(ctx)
	if id == "" || id == "unknown" {
		return nil
	}
	return &id
}

func fromContext(ctx context.Context, key interface{}, header string) string {
	if val, ok := ctx.Value(key).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(header); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
