package apperror

import (
	"github.com/fekuna/omnipos-stock-service/pkg/i18n"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code maps a stock error to the gRPC code callers should see.
func Code(err error) codes.Code {
	switch KindOf(err) {
	case KindInsufficientStock, KindInsufficientIngredientStock:
		return codes.FailedPrecondition
	case KindInvalidReference:
		return codes.NotFound
	case KindMissingReason, KindInvalidArgument:
		return codes.InvalidArgument
	case KindDuplicateLink:
		return codes.AlreadyExists
	case KindConcurrencyConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error with a message localized for langs.
// Errors that already carry a status pass through unchanged.
func ToStatus(err error, langs ...string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	appErr := As(err)
	if appErr == nil {
		return status.Error(codes.Internal, i18n.Localize(KindInternal.String(), nil, langs...))
	}

	return status.Error(Code(err), i18n.Localize(appErr.Kind.String(), templateData(appErr), langs...))
}

func templateData(e *Error) map[string]interface{} {
	data := map[string]interface{}{
		"Entity":     e.Entity,
		"ID":         e.EntityID,
		"Name":       e.Name,
		"Ingredient": e.Related,
		"Available":  e.Available.String(),
		"Requested":  e.Requested.String(),
		"Detail":     e.Message,
	}
	if e.Pool != nil {
		data["Pool"] = e.Pool.String()
	}
	return data
}
