// Package apperror defines the typed failures returned by the stock engines.
package apperror

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

// Kind categorizes stock errors.
type Kind int

const (
	KindInternal Kind = iota
	// KindInsufficientStock is a product pool shortfall (general stock or bar inventory).
	KindInsufficientStock
	// KindInsufficientIngredientStock is a composite product shortfall on one ingredient.
	KindInsufficientIngredientStock
	// KindInvalidReference means the target entity is missing or soft-deleted.
	KindInvalidReference
	// KindMissingReason is a loss adjustment without a reason.
	KindMissingReason
	// KindDuplicateLink means the recipe or product already uses the ingredient.
	KindDuplicateLink
	// KindConcurrencyConflict is a transaction conflict that survived the retries.
	KindConcurrencyConflict
	// KindInvalidArgument is a malformed request.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInsufficientIngredientStock:
		return "insufficient_ingredient_stock"
	case KindInvalidReference:
		return "invalid_reference"
	case KindMissingReason:
		return "missing_reason"
	case KindDuplicateLink:
		return "duplicate_link"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "internal_error"
	}
}

// Entity names used in InvalidReference and DuplicateLink errors.
const (
	EntityProduct    = "product"
	EntityIngredient = "ingredient"
	EntityRecipe     = "recipe"
	EntityBar        = "bar"
	EntityInventory  = "inventory"
)

// Error carries enough context for the caller to say which pool or entity failed.
type Error struct {
	Kind    Kind
	Message string

	Pool      *model.PoolKey
	Entity    string
	EntityID  string
	Name      string
	Related   string // ingredient id for DuplicateLink
	Available decimal.Decimal
	Requested decimal.Decimal

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes a bare sentinel such as ErrInsufficientStock match every error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrInsufficientStock           = &Error{Kind: KindInsufficientStock}
	ErrInsufficientIngredientStock = &Error{Kind: KindInsufficientIngredientStock}
	ErrInvalidReference            = &Error{Kind: KindInvalidReference}
	ErrMissingReason               = &Error{Kind: KindMissingReason}
	ErrDuplicateLink               = &Error{Kind: KindDuplicateLink}
	ErrConcurrencyConflict         = &Error{Kind: KindConcurrencyConflict}
	ErrInvalidArgument             = &Error{Kind: KindInvalidArgument}
)

func InsufficientStock(pool model.PoolKey, available, requested decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock in %s: available %s, requested %s", pool, available, requested),
		Pool:      &pool,
		Available: available,
		Requested: requested,
	}
}

func InsufficientIngredientStock(ingredientID, name string, available, requested decimal.Decimal) *Error {
	pool := model.IngredientStock(ingredientID)
	return &Error{
		Kind: KindInsufficientIngredientStock,
		Message: fmt.Sprintf("insufficient stock for ingredient %s (%s): available %s, required %s",
			name, ingredientID, available, requested),
		Pool:      &pool,
		Entity:    EntityIngredient,
		EntityID:  ingredientID,
		Name:      name,
		Available: available,
		Requested: requested,
	}
}

func InvalidReference(entity, id string) *Error {
	return &Error{
		Kind:     KindInvalidReference,
		Message:  fmt.Sprintf("%s %s not found or deleted", entity, id),
		Entity:   entity,
		EntityID: id,
	}
}

func MissingReason() *Error {
	return &Error{Kind: KindMissingReason, Message: "a loss adjustment requires a reason"}
}

// DuplicateLink reports that owner (a recipe or product) already has a live link to ingredientID.
func DuplicateLink(ownerEntity, ownerID, ingredientID string) *Error {
	return &Error{
		Kind:     KindDuplicateLink,
		Message:  fmt.Sprintf("%s %s already uses ingredient %s", ownerEntity, ownerID, ingredientID),
		Entity:   ownerEntity,
		EntityID: ownerID,
		Related:  ingredientID,
	}
}

func ConcurrencyConflict(cause error) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: "transaction conflict, retries exhausted", Cause: cause}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// As extracts an *Error from an error chain.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// KindOf returns the kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	if appErr := As(err); appErr != nil {
		return appErr.Kind
	}
	return KindInternal
}
