package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errReadOnly = errors.New("write attempted in a read-only transaction")

type memState struct {
	products    map[string]model.Product
	ingredients map[string]model.Ingredient
	recipes     map[string]model.Recipe
	bars        map[string]model.Bar
	links       []model.RecipeIngredient
	inventory   []model.BarInventory
	transfers   []model.Transfer
	adjustments []model.Adjustment
	orderLines  map[string]int
}

func newMemState() *memState {
	return &memState{
		products:    map[string]model.Product{},
		ingredients: map[string]model.Ingredient{},
		recipes:     map[string]model.Recipe{},
		bars:        map[string]model.Bar{},
		orderLines:  map[string]int{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		products:    make(map[string]model.Product, len(s.products)),
		ingredients: make(map[string]model.Ingredient, len(s.ingredients)),
		recipes:     make(map[string]model.Recipe, len(s.recipes)),
		bars:        make(map[string]model.Bar, len(s.bars)),
		links:       append([]model.RecipeIngredient(nil), s.links...),
		inventory:   append([]model.BarInventory(nil), s.inventory...),
		transfers:   append([]model.Transfer(nil), s.transfers...),
		adjustments: append([]model.Adjustment(nil), s.adjustments...),
		orderLines:  make(map[string]int, len(s.orderLines)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	for k, v := range s.bars {
		c.bars[k] = v
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = v
	}
	return c
}

// MemoryStore keeps every table in process memory. Each transaction works on a
// private copy that replaces the shared state only on success, and commits are
// serialized, so it behaves like a serializable store with no conflicts.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memTx{state: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, tx stock.Tx) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(ctx, &memTx{state: snapshot, now: s.now, readOnly: true})
}

// RecordOrderLine registers a historical order line for productID. Order lines
// belong to the order service; this stands in for that table.
func (s *MemoryStore) RecordOrderLine(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.orderLines[productID]++
}

type memTx struct {
	state    *memState
	now      func() time.Time
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memTx) Quantity(ctx context.Context, key model.PoolKey) (decimal.Decimal, error) {
	switch key.Kind {
	case model.PoolGeneralStock:
		p, ok := t.state.products[key.ProductID]
		if !ok || !p.IsLive() {
			return decimal.Zero, apperror.InvalidReference(apperror.EntityProduct, key.ProductID)
		}
		return p.GeneralStock, nil
	case model.PoolBarInventory:
		if err := t.checkBarPool(key); err != nil {
			return decimal.Zero, err
		}
		if idx := t.inventoryIndex(key.BarID, key.ProductID); idx >= 0 {
			return t.state.inventory[idx].Quantity, nil
		}
		return decimal.Zero, nil
	case model.PoolIngredientStock:
		i, ok := t.state.ingredients[key.IngredientID]
		if !ok || !i.IsLive() {
			return decimal.Zero, apperror.InvalidReference(apperror.EntityIngredient, key.IngredientID)
		}
		return i.Stock, nil
	}
	return decimal.Zero, apperror.InvalidArgument("invalid pool key %s", key)
}

func (t *memTx) Apply(ctx context.Context, key model.PoolKey, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := t.writable(); err != nil {
		return decimal.Zero, err
	}
	current, err := t.Quantity(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if delta.IsZero() {
		return current, nil
	}

	next := current.Add(delta)
	if next.IsNegative() {
		if key.Kind == model.PoolIngredientStock {
			ing := t.state.ingredients[key.IngredientID]
			return decimal.Zero, apperror.InsufficientIngredientStock(ing.ID, ing.Name, current, delta.Neg())
		}
		return decimal.Zero, apperror.InsufficientStock(key, current, delta.Neg())
	}

	now := t.now()
	switch key.Kind {
	case model.PoolGeneralStock:
		p := t.state.products[key.ProductID]
		p.GeneralStock = next
		p.UpdatedAt = now
		t.state.products[key.ProductID] = p
	case model.PoolIngredientStock:
		i := t.state.ingredients[key.IngredientID]
		i.Stock = next
		i.UpdatedAt = now
		t.state.ingredients[key.IngredientID] = i
	case model.PoolBarInventory:
		if idx := t.inventoryIndex(key.BarID, key.ProductID); idx >= 0 {
			t.state.inventory[idx].Quantity = next
			t.state.inventory[idx].UpdatedAt = now
		} else {
			t.state.inventory = append(t.state.inventory, model.BarInventory{
				ID:        uuid.New().String(),
				BarID:     key.BarID,
				ProductID: key.ProductID,
				Quantity:  next,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return next, nil
}

func (t *memTx) checkBarPool(key model.PoolKey) error {
	if b, ok := t.state.bars[key.BarID]; !ok || !b.IsLive() {
		return apperror.InvalidReference(apperror.EntityBar, key.BarID)
	}
	if p, ok := t.state.products[key.ProductID]; !ok || !p.IsLive() {
		return apperror.InvalidReference(apperror.EntityProduct, key.ProductID)
	}
	return nil
}

func (t *memTx) inventoryIndex(barID, productID string) int {
	for i, row := range t.state.inventory {
		if row.BarID == barID && row.ProductID == productID {
			return i
		}
	}
	return -1
}

func (t *memTx) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if p, ok := t.state.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (t *memTx) GetIngredient(ctx context.Context, id string) (*model.Ingredient, error) {
	if i, ok := t.state.ingredients[id]; ok {
		return &i, nil
	}
	return nil, nil
}

func (t *memTx) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	if r, ok := t.state.recipes[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (t *memTx) GetBar(ctx context.Context, id string) (*model.Bar, error) {
	if b, ok := t.state.bars[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (t *memTx) GetInventory(ctx context.Context, id string) (*model.BarInventory, error) {
	for _, row := range t.state.inventory {
		if row.ID == id {
			r := row
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memTx) FindInventory(ctx context.Context, barID, productID string) (*model.BarInventory, error) {
	if idx := t.inventoryIndex(barID, productID); idx >= 0 {
		r := t.state.inventory[idx]
		return &r, nil
	}
	return nil, nil
}

func (t *memTx) ListInventoryByProduct(ctx context.Context, productID string) ([]model.BarInventory, error) {
	rows := []model.BarInventory{}
	for _, row := range t.state.inventory {
		if row.ProductID == productID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (t *memTx) ListLinks(ctx context.Context, f dto.LinkFilter) ([]model.RecipeIngredient, error) {
	links := []model.RecipeIngredient{}
	for _, l := range t.state.links {
		if !f.IncludeDeleted && !l.IsLive() {
			continue
		}
		if len(f.RecipeIDs) > 0 && !matches(l.RecipeID, f.RecipeIDs) {
			continue
		}
		if len(f.ProductIDs) > 0 && !matches(l.ProductID, f.ProductIDs) {
			continue
		}
		if len(f.IngredientIDs) > 0 && !matches(l.IngredientID, f.IngredientIDs) {
			continue
		}
		links = append(links, l)
	}
	return links, nil
}

func matches(ref *string, ids []string) bool {
	if ref == nil {
		return false
	}
	for _, id := range ids {
		if *ref == id {
			return true
		}
	}
	return false
}

func (t *memTx) ListIngredientsByProduct(ctx context.Context, productID string) ([]model.Ingredient, error) {
	out := []model.Ingredient{}
	for _, i := range t.state.ingredients {
		if i.ProductID != nil && *i.ProductID == productID {
			out = append(out, i)
		}
	}
	sortIngredients(out)
	return out, nil
}

func (t *memTx) ListProductsByRecipe(ctx context.Context, recipeID string) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range t.state.products {
		if p.RecipeID != nil && *p.RecipeID == recipeID {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (t *memTx) ListProductsByIngredient(ctx context.Context, ingredientID string) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range t.state.products {
		if p.IngredientID != nil && *p.IngredientID == ingredientID {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (t *memTx) ListIngredients(ctx context.Context, includeDeleted bool) ([]model.Ingredient, error) {
	out := []model.Ingredient{}
	for _, i := range t.state.ingredients {
		if includeDeleted || i.IsLive() {
			out = append(out, i)
		}
	}
	sortIngredients(out)
	return out, nil
}

func (t *memTx) CountOrderLines(ctx context.Context, productIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		if n := t.state.orderLines[id]; n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (t *memTx) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.products[p.ID] = *p
	return nil
}

func (t *memTx) CreateIngredient(ctx context.Context, i *model.Ingredient) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.ingredients[i.ID] = *i
	return nil
}

func (t *memTx) SetIngredientProduct(ctx context.Context, ingredientID, productID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	i, ok := t.state.ingredients[ingredientID]
	if !ok {
		return apperror.InvalidReference(apperror.EntityIngredient, ingredientID)
	}
	i.ProductID = nil
	if productID != "" {
		i.ProductID = &productID
	}
	i.UpdatedAt = t.now()
	t.state.ingredients[ingredientID] = i
	return nil
}

func (t *memTx) CreateRecipe(ctx context.Context, r *model.Recipe) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.recipes[r.ID] = *r
	return nil
}

func (t *memTx) CreateLink(ctx context.Context, l *model.RecipeIngredient) error {
	if err := t.writable(); err != nil {
		return err
	}
	// Mirrors the partial unique indexes on live links.
	for _, existing := range t.state.links {
		if !existing.IsLive() || existing.Kind() != l.Kind() {
			continue
		}
		if sameRef(existing.RecipeID, l.RecipeID) && sameRef(existing.ProductID, l.ProductID) && sameRef(existing.IngredientID, l.IngredientID) {
			owner, ownerID := linkOwner(l)
			related := ""
			if l.IngredientID != nil {
				related = *l.IngredientID
			} else if l.RecipeID != nil {
				related = *l.RecipeID
			}
			return apperror.DuplicateLink(owner, ownerID, related)
		}
	}
	t.state.links = append(t.state.links, *l)
	return nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func linkOwner(l *model.RecipeIngredient) (string, string) {
	if l.ProductID != nil {
		return apperror.EntityProduct, *l.ProductID
	}
	if l.RecipeID != nil {
		return apperror.EntityRecipe, *l.RecipeID
	}
	return "", ""
}

func (t *memTx) CreateBar(ctx context.Context, b *model.Bar) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.bars[b.ID] = *b
	return nil
}

func (t *memTx) SoftDelete(ctx context.Context, target dto.SoftDeleteTarget, at time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, id := range target.ProductIDs {
		if p, ok := t.state.products[id]; ok && p.DeletedAt == nil {
			p.DeletedAt = &at
			p.UpdatedAt = at
			t.state.products[id] = p
		}
	}
	for _, id := range target.IngredientIDs {
		if i, ok := t.state.ingredients[id]; ok && i.DeletedAt == nil {
			i.DeletedAt = &at
			i.UpdatedAt = at
			t.state.ingredients[id] = i
		}
	}
	for _, id := range target.RecipeIDs {
		if r, ok := t.state.recipes[id]; ok && r.DeletedAt == nil {
			r.DeletedAt = &at
			r.UpdatedAt = at
			t.state.recipes[id] = r
		}
	}
	linkIDs := make(map[string]struct{}, len(target.LinkIDs))
	for _, id := range target.LinkIDs {
		linkIDs[id] = struct{}{}
	}
	for i := range t.state.links {
		if _, ok := linkIDs[t.state.links[i].ID]; ok && t.state.links[i].DeletedAt == nil {
			t.state.links[i].DeletedAt = &at
			t.state.links[i].UpdatedAt = at
		}
	}
	return nil
}

func (t *memTx) DeleteInventoryByProducts(ctx context.Context, productIDs []string) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	kept := t.state.inventory[:0:0]
	removed := 0
	for _, row := range t.state.inventory {
		if _, ok := drop[row.ProductID]; ok {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.state.inventory = kept
	return removed, nil
}

func (t *memTx) InsertTransfer(ctx context.Context, tr *model.Transfer) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.transfers = append(t.state.transfers, *tr)
	return nil
}

func (t *memTx) InsertAdjustment(ctx context.Context, a *model.Adjustment) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.state.adjustments = append(t.state.adjustments, *a)
	return nil
}

func (t *memTx) ListTransfers(ctx context.Context, f dto.AuditFilter) ([]model.Transfer, int, error) {
	items := []model.Transfer{}
	for i := len(t.state.transfers) - 1; i >= 0; i-- {
		tr := t.state.transfers[i]
		if f.ProductID != "" && tr.ProductID != f.ProductID {
			continue
		}
		if f.BarID != "" && !matches(tr.FromBarID, []string{f.BarID}) && !matches(tr.ToBarID, []string{f.BarID}) {
			continue
		}
		items = append(items, tr)
	}
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func (t *memTx) ListAdjustments(ctx context.Context, f dto.AuditFilter) ([]model.Adjustment, int, error) {
	items := []model.Adjustment{}
	for i := len(t.state.adjustments) - 1; i >= 0; i-- {
		a := t.state.adjustments[i]
		if f.ProductID != "" && a.ProductID != f.ProductID {
			continue
		}
		if f.BarID != "" && !matches(a.DestinationBarID, []string{f.BarID}) && !t.inventoryInBar(a.InventoryID, f.BarID) {
			continue
		}
		items = append(items, a)
	}
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func (t *memTx) inventoryInBar(inventoryID *string, barID string) bool {
	if inventoryID == nil {
		return false
	}
	for _, row := range t.state.inventory {
		if row.ID == *inventoryID {
			return row.BarID == barID
		}
	}
	return false
}

func (t *memTx) ClearTransfers(ctx context.Context) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	n := len(t.state.transfers)
	t.state.transfers = nil
	return n, nil
}

func (t *memTx) ClearAdjustments(ctx context.Context) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	n := len(t.state.adjustments)
	t.state.adjustments = nil
	return n, nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortProducts(ps []model.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

func sortIngredients(is []model.Ingredient) {
	sort.Slice(is, func(i, j int) bool {
		if is[i].Name != is[j].Name {
			return is[i].Name < is[j].Name
		}
		return is[i].ID < is[j].ID
	})
}
