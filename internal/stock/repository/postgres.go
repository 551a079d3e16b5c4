package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

type PGStore struct {
	DB         *sqlx.DB
	maxRetries int
	logger     logger.ZapLogger
}

func NewPGStore(db *sqlx.DB, maxRetries int, log logger.ZapLogger) *PGStore {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &PGStore{DB: db, maxRetries: maxRetries, logger: log}
}

// WithinTx runs fn in a SERIALIZABLE transaction and replays it from scratch
// when Postgres aborts it with a serialization failure or deadlock.
func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		s.logger.Warn("stock transaction conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.maxRetries),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return apperror.ConcurrencyConflict(lastErr)
}

func (s *PGStore) runTx(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) View(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(ctx, &pgTx{tx: tx})
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Quantity(ctx context.Context, key model.PoolKey) (decimal.Decimal, error) {
	switch key.Kind {
	case model.PoolGeneralStock:
		p, err := t.GetProduct(ctx, key.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		if !p.IsLive() {
			return decimal.Zero, apperror.InvalidReference(apperror.EntityProduct, key.ProductID)
		}
		return p.GeneralStock, nil
	case model.PoolBarInventory:
		if err := t.checkBarPool(ctx, key); err != nil {
			return decimal.Zero, err
		}
		row, err := t.FindInventory(ctx, key.BarID, key.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		if row == nil {
			return decimal.Zero, nil
		}
		return row.Quantity, nil
	case model.PoolIngredientStock:
		i, err := t.GetIngredient(ctx, key.IngredientID)
		if err != nil {
			return decimal.Zero, err
		}
		if !i.IsLive() {
			return decimal.Zero, apperror.InvalidReference(apperror.EntityIngredient, key.IngredientID)
		}
		return i.Stock, nil
	}
	return decimal.Zero, apperror.InvalidArgument("invalid pool key %s", key)
}

// Apply relies on the WHERE clause of a single UPDATE to refuse a negative
// result, so two transactions can never both pass the check on the same row.
func (t *pgTx) Apply(ctx context.Context, key model.PoolKey, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsZero() {
		return t.Quantity(ctx, key)
	}

	var (
		next decimal.Decimal
		err  error
	)
	switch key.Kind {
	case model.PoolGeneralStock:
		err = t.tx.GetContext(ctx, &next, `
			UPDATE products
			SET general_stock = general_stock + $1, updated_at = now()
			WHERE id = $2 AND deleted_at IS NULL AND general_stock + $1 >= 0
			RETURNING general_stock`, delta, key.ProductID)
	case model.PoolIngredientStock:
		err = t.tx.GetContext(ctx, &next, `
			UPDATE ingredients
			SET stock = stock + $1, updated_at = now()
			WHERE id = $2 AND deleted_at IS NULL AND stock + $1 >= 0
			RETURNING stock`, delta, key.IngredientID)
	case model.PoolBarInventory:
		if err := t.checkBarPool(ctx, key); err != nil {
			return decimal.Zero, err
		}
		if delta.IsPositive() {
			err = t.tx.GetContext(ctx, &next, `
				INSERT INTO bar_inventory (id, bar_id, product_id, quantity, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
				ON CONFLICT (bar_id, product_id)
				DO UPDATE SET quantity = bar_inventory.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
				RETURNING quantity`, uuid.New().String(), key.BarID, key.ProductID, delta)
		} else {
			err = t.tx.GetContext(ctx, &next, `
				UPDATE bar_inventory
				SET quantity = quantity + $1, updated_at = now()
				WHERE bar_id = $2 AND product_id = $3 AND quantity + $1 >= 0
				RETURNING quantity`, delta, key.BarID, key.ProductID)
		}
	default:
		return decimal.Zero, apperror.InvalidArgument("invalid pool key %s", key)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, t.diagnose(ctx, key, delta)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to apply %s to %s: %w", delta, key, err)
	}
	return next, nil
}

// diagnose explains why a conditional update matched no row.
func (t *pgTx) diagnose(ctx context.Context, key model.PoolKey, delta decimal.Decimal) error {
	current, err := t.Quantity(ctx, key)
	if err != nil {
		return err
	}
	if key.Kind == model.PoolIngredientStock {
		ing, err := t.GetIngredient(ctx, key.IngredientID)
		if err != nil {
			return err
		}
		return apperror.InsufficientIngredientStock(ing.ID, ing.Name, current, delta.Neg())
	}
	return apperror.InsufficientStock(key, current, delta.Neg())
}

func (t *pgTx) checkBarPool(ctx context.Context, key model.PoolKey) error {
	bar, err := t.GetBar(ctx, key.BarID)
	if err != nil {
		return err
	}
	if !bar.IsLive() {
		return apperror.InvalidReference(apperror.EntityBar, key.BarID)
	}
	p, err := t.GetProduct(ctx, key.ProductID)
	if err != nil {
		return err
	}
	if !p.IsLive() {
		return apperror.InvalidReference(apperror.EntityProduct, key.ProductID)
	}
	return nil
}

// get scans one row into dest and reports whether it existed.
func (t *pgTx) get(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := t.tx.GetContext(ctx, dest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	found, err := t.get(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if !found || err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) GetIngredient(ctx context.Context, id string) (*model.Ingredient, error) {
	var i model.Ingredient
	found, err := t.get(ctx, &i, `SELECT * FROM ingredients WHERE id = $1`, id)
	if !found || err != nil {
		return nil, err
	}
	return &i, nil
}

func (t *pgTx) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	var r model.Recipe
	found, err := t.get(ctx, &r, `SELECT * FROM recipes WHERE id = $1`, id)
	if !found || err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) GetBar(ctx context.Context, id string) (*model.Bar, error) {
	var b model.Bar
	found, err := t.get(ctx, &b, `SELECT * FROM bars WHERE id = $1`, id)
	if !found || err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *pgTx) GetInventory(ctx context.Context, id string) (*model.BarInventory, error) {
	var row model.BarInventory
	found, err := t.get(ctx, &row, `SELECT * FROM bar_inventory WHERE id = $1`, id)
	if !found || err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *pgTx) FindInventory(ctx context.Context, barID, productID string) (*model.BarInventory, error) {
	var row model.BarInventory
	found, err := t.get(ctx, &row, `SELECT * FROM bar_inventory WHERE bar_id = $1 AND product_id = $2`, barID, productID)
	if !found || err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *pgTx) ListInventoryByProduct(ctx context.Context, productID string) ([]model.BarInventory, error) {
	rows := []model.BarInventory{}
	err := t.tx.SelectContext(ctx, &rows, `SELECT * FROM bar_inventory WHERE product_id = $1 ORDER BY created_at, id`, productID)
	return rows, err
}

func (t *pgTx) ListLinks(ctx context.Context, f dto.LinkFilter) ([]model.RecipeIngredient, error) {
	conditions := []string{}
	args := []interface{}{}

	if !f.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if len(f.RecipeIDs) > 0 {
		conditions = append(conditions, "recipe_id IN (?)")
		args = append(args, f.RecipeIDs)
	}
	if len(f.ProductIDs) > 0 {
		conditions = append(conditions, "product_id IN (?)")
		args = append(args, f.ProductIDs)
	}
	if len(f.IngredientIDs) > 0 {
		conditions = append(conditions, "ingredient_id IN (?)")
		args = append(args, f.IngredientIDs)
	}

	query := "SELECT * FROM recipe_ingredients"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	if len(args) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, err
		}
	}

	links := []model.RecipeIngredient{}
	err := t.tx.SelectContext(ctx, &links, t.tx.Rebind(query), args...)
	return links, err
}

func (t *pgTx) ListIngredientsByProduct(ctx context.Context, productID string) ([]model.Ingredient, error) {
	out := []model.Ingredient{}
	err := t.tx.SelectContext(ctx, &out, `SELECT * FROM ingredients WHERE product_id = $1 ORDER BY name, id`, productID)
	return out, err
}

func (t *pgTx) ListProductsByRecipe(ctx context.Context, recipeID string) ([]model.Product, error) {
	out := []model.Product{}
	err := t.tx.SelectContext(ctx, &out, `SELECT * FROM products WHERE recipe_id = $1 ORDER BY name, id`, recipeID)
	return out, err
}

func (t *pgTx) ListProductsByIngredient(ctx context.Context, ingredientID string) ([]model.Product, error) {
	out := []model.Product{}
	err := t.tx.SelectContext(ctx, &out, `SELECT * FROM products WHERE ingredient_id = $1 ORDER BY name, id`, ingredientID)
	return out, err
}

func (t *pgTx) ListIngredients(ctx context.Context, includeDeleted bool) ([]model.Ingredient, error) {
	query := `SELECT * FROM ingredients`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY name, id`

	out := []model.Ingredient{}
	err := t.tx.SelectContext(ctx, &out, query)
	return out, err
}

func (t *pgTx) CountOrderLines(ctx context.Context, productIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(productIDs))
	if len(productIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`
		SELECT product_id, count(*) AS lines
		FROM order_items
		WHERE product_id IN (?)
		GROUP BY product_id`, productIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ProductID string `db:"product_id"`
		Lines     int    `db:"lines"`
	}
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ProductID] = r.Lines
	}
	return counts, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            id, name, general_stock, purchase_price, sale_price, kind,
            recipe_id, ingredient_id, created_at, updated_at
        )
        VALUES (
            :id, :name, :general_stock, :purchase_price, :sale_price, :kind,
            :recipe_id, :ingredient_id, :created_at, :updated_at
        )
    `
	_, err := t.tx.NamedExecContext(ctx, query, p)
	return err
}

func (t *pgTx) CreateIngredient(ctx context.Context, i *model.Ingredient) error {
	query := `
        INSERT INTO ingredients (
            id, name, unit, quantity_per_unit, stock, original_quantity,
            purchase_price, product_id, created_at, updated_at
        )
        VALUES (
            :id, :name, :unit, :quantity_per_unit, :stock, :original_quantity,
            :purchase_price, :product_id, :created_at, :updated_at
        )
    `
	_, err := t.tx.NamedExecContext(ctx, query, i)
	return err
}

func (t *pgTx) SetIngredientProduct(ctx context.Context, ingredientID, productID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE ingredients SET product_id = NULLIF($1, ''), updated_at = now() WHERE id = $2`, productID, ingredientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.InvalidReference(apperror.EntityIngredient, ingredientID)
	}
	return nil
}

func (t *pgTx) CreateRecipe(ctx context.Context, r *model.Recipe) error {
	query := `
        INSERT INTO recipes (id, name, kind, created_at, updated_at)
        VALUES (:id, :name, :kind, :created_at, :updated_at)
    `
	_, err := t.tx.NamedExecContext(ctx, query, r)
	return err
}

func (t *pgTx) CreateLink(ctx context.Context, l *model.RecipeIngredient) error {
	query := `
        INSERT INTO recipe_ingredients (
            id, recipe_id, product_id, ingredient_id,
            deduct_quantity, deduct_stock, created_at, updated_at
        )
        VALUES (
            :id, :recipe_id, :product_id, :ingredient_id,
            :deduct_quantity, :deduct_stock, :created_at, :updated_at
        )
    `
	_, err := t.tx.NamedExecContext(ctx, query, l)
	if isUniqueViolation(err) {
		owner, ownerID := linkOwner(l)
		related := ""
		if l.IngredientID != nil {
			related = *l.IngredientID
		} else if l.RecipeID != nil {
			related = *l.RecipeID
		}
		return apperror.DuplicateLink(owner, ownerID, related)
	}
	return err
}

func (t *pgTx) CreateBar(ctx context.Context, b *model.Bar) error {
	query := `
        INSERT INTO bars (id, name, created_at, updated_at)
        VALUES (:id, :name, :created_at, :updated_at)
    `
	_, err := t.tx.NamedExecContext(ctx, query, b)
	return err
}

func (t *pgTx) SoftDelete(ctx context.Context, target dto.SoftDeleteTarget, at time.Time) error {
	batches := []struct {
		table string
		ids   []string
	}{
		{"recipe_ingredients", target.LinkIDs},
		{"products", target.ProductIDs},
		{"ingredients", target.IngredientIDs},
		{"recipes", target.RecipeIDs},
	}

	for _, b := range batches {
		if len(b.ids) == 0 {
			continue
		}
		query, args, err := sqlx.In(
			"UPDATE "+b.table+" SET deleted_at = ?, updated_at = ? WHERE id IN (?) AND deleted_at IS NULL",
			at, at, b.ids)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to soft delete %s: %w", b.table, err)
		}
	}
	return nil
}

func (t *pgTx) DeleteInventoryByProducts(ctx context.Context, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM bar_inventory WHERE product_id IN (?)`, productIDs)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t *pgTx) InsertTransfer(ctx context.Context, tr *model.Transfer) error {
	query := `
        INSERT INTO transfers (
            id, inventory_id, product_id, from_bar_id, to_bar_id,
            amount, created_by, created_at
        )
        VALUES (
            :id, :inventory_id, :product_id, :from_bar_id, :to_bar_id,
            :amount, :created_by, :created_at
        )
    `
	_, err := t.tx.NamedExecContext(ctx, query, tr)
	return err
}

func (t *pgTx) InsertAdjustment(ctx context.Context, a *model.Adjustment) error {
	query := `
        INSERT INTO adjustments (
            id, inventory_id, product_id, kind, amount, reason,
            destination_bar_id, created_by, created_at
        )
        VALUES (
            :id, :inventory_id, :product_id, :kind, :amount, :reason,
            :destination_bar_id, :created_by, :created_at
        )
    `
	_, err := t.tx.NamedExecContext(ctx, query, a)
	return err
}

func (t *pgTx) ListTransfers(ctx context.Context, f dto.AuditFilter) ([]model.Transfer, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.BarID != "" {
		conditions = append(conditions, "(from_bar_id = :bar_id OR to_bar_id = :bar_id)")
		args["bar_id"] = f.BarID
	}

	items := []model.Transfer{}
	count, err := t.selectPage(ctx, &items, "transfers", conditions, args, f.Page, f.PageSize)
	return items, count, err
}

func (t *pgTx) ListAdjustments(ctx context.Context, f dto.AuditFilter) ([]model.Adjustment, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.BarID != "" {
		conditions = append(conditions,
			"(destination_bar_id = :bar_id OR inventory_id IN (SELECT id FROM bar_inventory WHERE bar_id = :bar_id))")
		args["bar_id"] = f.BarID
	}

	items := []model.Adjustment{}
	count, err := t.selectPage(ctx, &items, "adjustments", conditions, args, f.Page, f.PageSize)
	return items, count, err
}

func (t *pgTx) selectPage(ctx context.Context, dest interface{}, table string, conditions []string, args map[string]interface{}, page, pageSize int) (int, error) {
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM "+table+whereClause, args)
	if err != nil {
		return 0, err
	}
	if err := t.tx.GetContext(ctx, &count, t.tx.Rebind(countQuery), countArgs...); err != nil {
		return 0, err
	}

	query := "SELECT * FROM " + table + whereClause + " ORDER BY created_at DESC, id"
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	query, queryArgs, err := sqlx.Named(query, args)
	if err != nil {
		return 0, err
	}
	return count, t.tx.SelectContext(ctx, dest, t.tx.Rebind(query), queryArgs...)
}

func (t *pgTx) ClearTransfers(ctx context.Context) (int, error) {
	return t.clear(ctx, "transfers")
}

func (t *pgTx) ClearAdjustments(ctx context.Context) (int, error) {
	return t.clear(ctx, "adjustments")
}

func (t *pgTx) clear(ctx context.Context, table string) (int, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
