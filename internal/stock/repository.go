package stock

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/shopspring/decimal"
)

// Store runs units of work against the pool and catalog tables.
type Store interface {
	// WithinTx runs fn in one serializable transaction. Transaction conflicts are
	// retried a bounded number of times, then reported as ConcurrencyConflict.
	// Any error returned by fn rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn in a read-only transaction. Reads may be stale.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the query interface available inside a unit of work. Getters return
// (nil, nil) when the row does not exist. Soft-deleted rows are returned;
// callers check IsLive.
type Tx interface {
	// Pools
	Quantity(ctx context.Context, key model.PoolKey) (decimal.Decimal, error)
	// Apply adds delta to the pool and returns the new quantity. It is the only
	// way pool quantities change: a negative delta that would drive the pool
	// below zero fails with InsufficientStock (InsufficientIngredientStock for
	// ingredient pools) and writes nothing. Bar rows are created on demand.
	Apply(ctx context.Context, key model.PoolKey, delta decimal.Decimal) (decimal.Decimal, error)

	// Catalog reads
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetIngredient(ctx context.Context, id string) (*model.Ingredient, error)
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	GetBar(ctx context.Context, id string) (*model.Bar, error)
	GetInventory(ctx context.Context, id string) (*model.BarInventory, error)
	FindInventory(ctx context.Context, barID, productID string) (*model.BarInventory, error)
	ListInventoryByProduct(ctx context.Context, productID string) ([]model.BarInventory, error)
	ListLinks(ctx context.Context, filter dto.LinkFilter) ([]model.RecipeIngredient, error)
	ListIngredientsByProduct(ctx context.Context, productID string) ([]model.Ingredient, error)
	ListProductsByRecipe(ctx context.Context, recipeID string) ([]model.Product, error)
	ListProductsByIngredient(ctx context.Context, ingredientID string) ([]model.Product, error)
	ListIngredients(ctx context.Context, includeDeleted bool) ([]model.Ingredient, error)
	// CountOrderLines reports how many historical order lines reference each product.
	CountOrderLines(ctx context.Context, productIDs []string) (map[string]int, error)

	// Catalog writes
	CreateProduct(ctx context.Context, p *model.Product) error
	CreateIngredient(ctx context.Context, i *model.Ingredient) error
	// SetIngredientProduct points the ingredient at its sellable product; an
	// empty productID clears the back-reference.
	SetIngredientProduct(ctx context.Context, ingredientID, productID string) error
	CreateRecipe(ctx context.Context, r *model.Recipe) error
	CreateLink(ctx context.Context, l *model.RecipeIngredient) error
	CreateBar(ctx context.Context, b *model.Bar) error
	SoftDelete(ctx context.Context, target dto.SoftDeleteTarget, at time.Time) error
	DeleteInventoryByProducts(ctx context.Context, productIDs []string) (int, error)

	// Audit trail
	InsertTransfer(ctx context.Context, t *model.Transfer) error
	InsertAdjustment(ctx context.Context, a *model.Adjustment) error
	ListTransfers(ctx context.Context, filter dto.AuditFilter) ([]model.Transfer, int, error)
	ListAdjustments(ctx context.Context, filter dto.AuditFilter) ([]model.Adjustment, int, error)
	ClearTransfers(ctx context.Context) (int, error)
	ClearAdjustments(ctx context.Context) (int, error)
}
