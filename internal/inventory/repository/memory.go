package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
)

type memState struct {
	records   map[string]model.InventoryRecord
	mutations []model.InventoryMutation
}

func (s *memState) clone() *memState {
	out := &memState{
		records:   make(map[string]model.InventoryRecord, len(s.records)),
		mutations: make([]model.InventoryMutation, len(s.mutations)),
	}
	for id, rec := range s.records {
		out.records[id] = rec
	}
	copy(out.mutations, s.mutations)
	return out
}

// MemoryStore is an in-process ledger. Transactions are serialized by a
// single lock and run against a copy of the state that replaces the live
// state only on success, which gives the same all-or-nothing behaviour as
// the Postgres store.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{records: make(map[string]model.InventoryRecord)},
		now:   time.Now,
	}
}

// SetClock replaces the time source used for created_at/updated_at.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) WithinTx(ctx context.Context, _ sql.IsolationLevel, fn func(ctx context.Context, repo inventory.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memRepo{state: work, now: s.now}); err != nil {
		return apperr.Storage(err)
	}
	s.state = work
	return nil
}

// Repository returns a non-transactional view. Each call takes the lock on
// its own.
func (s *MemoryStore) Repository() inventory.Repository {
	return &lockedRepo{store: s}
}

// Seed stores rec as-is, assigning an id and timestamps when missing.
func (s *MemoryStore) Seed(rec model.InventoryRecord) model.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	rec.AvailableQuantity = rec.Available()
	s.state.records[rec.ID] = rec
	return rec
}

type memRepo struct {
	state *memState
	now   func() time.Time
}

func (r *memRepo) Find(_ context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	for _, rec := range r.state.records {
		if rec.Key().Matches(key) {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindForUpdate(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	return r.Find(ctx, key)
}

func (r *memRepo) GetByID(_ context.Context, id string) (*model.InventoryRecord, error) {
	rec, ok := r.state.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memRepo) FindCandidates(_ context.Context, f *dto.CandidateFilter) ([]model.InventoryRecord, error) {
	items := []model.InventoryRecord{}
	for _, rec := range r.state.records {
		if rec.ProductID != f.ProductID || !sameOptional(rec.VariantID, f.VariantID) {
			continue
		}
		if !optionalMatch(rec.BatchNumber, f.BatchNumber) || !optionalMatch(rec.Location, f.Location) {
			continue
		}
		items = append(items, rec)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		first, second := [2]time.Time{a.UpdatedAt, a.CreatedAt}, [2]time.Time{b.UpdatedAt, b.CreatedAt}
		if f.Order == dto.PickOldestReceived {
			first, second = [2]time.Time{a.CreatedAt, a.UpdatedAt}, [2]time.Time{b.CreatedAt, b.UpdatedAt}
		}
		for k := range first {
			if !first[k].Equal(second[k]) {
				return first[k].Before(second[k])
			}
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (r *memRepo) List(_ context.Context, f *dto.StockFilter) ([]model.InventoryRecord, int, error) {
	items := []model.InventoryRecord{}
	for _, rec := range r.state.records {
		if f.ProductID != "" && rec.ProductID != f.ProductID {
			continue
		}
		if !optionalMatch(rec.VariantID, f.VariantID) ||
			!optionalMatch(rec.BatchNumber, f.BatchNumber) ||
			!optionalMatch(rec.Location, f.Location) {
			continue
		}
		if f.OnlyInStock && rec.Quantity <= 0 {
			continue
		}
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

func (r *memRepo) Create(_ context.Context, rec *model.InventoryRecord) error {
	if err := model.CheckInvariants(rec.Quantity, rec.ReservedQuantity); err != nil {
		return err
	}
	for _, existing := range r.state.records {
		if existing.Key().Matches(rec.Key()) {
			return apperr.Newf(apperr.CodeStorage, "inventory record %s already exists", rec.Key())
		}
	}
	rec.AvailableQuantity = rec.Available()
	r.state.records[rec.ID] = *rec
	return nil
}

func (r *memRepo) CreateOrIncrement(ctx context.Context, key model.KeyTuple, qty int64, meta dto.RecordMetadata) (*model.InventoryRecord, error) {
	now := r.now()
	existing, _ := r.Find(ctx, key)
	if existing == nil {
		rec := model.InventoryRecord{
			ID:          uuid.New().String(),
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
			BatchNumber: key.BatchNumber,
			Location:    key.Location,
			Quantity:    qty,
			UnitCost:    meta.UnitCost,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		rec.AvailableQuantity = rec.Available()
		r.state.records[rec.ID] = rec
		return &rec, nil
	}

	quantity, err := model.AddQuantity(existing.Quantity, qty)
	if err != nil {
		return nil, err
	}
	existing.Quantity = quantity
	if meta.UnitCost.Valid {
		existing.UnitCost = meta.UnitCost
	}
	existing.UpdatedAt = now
	existing.AvailableQuantity = existing.Available()
	r.state.records[existing.ID] = *existing
	return existing, nil
}

func (r *memRepo) ConditionalDecrement(_ context.Context, id string, qty int64) (int64, error) {
	rec, ok := r.state.records[id]
	if !ok || rec.Quantity < qty || rec.Available() < qty {
		return 0, nil
	}
	rec.Quantity -= qty
	rec.UpdatedAt = r.now()
	rec.AvailableQuantity = rec.Available()
	r.state.records[id] = rec
	return 1, nil
}

func (r *memRepo) SetQuantity(_ context.Context, id string, qty int64) (*model.InventoryRecord, error) {
	rec, ok := r.state.records[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeRecordNotFound, "inventory record %s not found", id)
	}
	if err := model.CheckInvariants(qty, rec.ReservedQuantity); err != nil {
		return nil, err
	}
	rec.Quantity = qty
	rec.UpdatedAt = r.now()
	rec.AvailableQuantity = rec.Available()
	r.state.records[id] = rec
	return &rec, nil
}

func (r *memRepo) InsertMutation(_ context.Context, m *model.InventoryMutation) error {
	if _, ok := r.state.records[m.InventoryID]; !ok {
		return apperr.Newf(apperr.CodeStorage, "inventory record %s does not exist", m.InventoryID)
	}
	r.state.mutations = append(r.state.mutations, *m)
	return nil
}

func (r *memRepo) ListMutations(_ context.Context, f *dto.MovementFilter) ([]model.InventoryMutation, int, error) {
	items := []model.InventoryMutation{}
	for _, m := range r.state.mutations {
		switch {
		case f.ProductID != "" && m.ProductID != f.ProductID,
			f.InventoryID != "" && m.InventoryID != f.InventoryID,
			f.OperationType != "" && m.OperationType != f.OperationType,
			f.OperatorID != "" && m.OperatorID != f.OperatorID,
			f.StartDate != nil && m.CreatedAt.Before(*f.StartDate),
			f.EndDate != nil && !m.CreatedAt.Before(*f.EndDate):
			continue
		}
		items = append(items, m)
	}
	// Newest first; insertion order breaks ties.
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := len(items)
	return paginate(items, f.Page, f.PageSize), total, nil
}

// lockedRepo serves reads outside a transaction.
type lockedRepo struct {
	store *MemoryStore
}

func (l *lockedRepo) view() *memRepo {
	return &memRepo{state: l.store.state, now: l.store.now}
}

func (l *lockedRepo) Find(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.view().Find(ctx, key)
}

func (l *lockedRepo) FindForUpdate(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	return l.Find(ctx, key)
}

func (l *lockedRepo) FindCandidates(ctx context.Context, f *dto.CandidateFilter) ([]model.InventoryRecord, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.view().FindCandidates(ctx, f)
}

func (l *lockedRepo) GetByID(ctx context.Context, id string) (*model.InventoryRecord, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.view().GetByID(ctx, id)
}

func (l *lockedRepo) List(ctx context.Context, f *dto.StockFilter) ([]model.InventoryRecord, int, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.view().List(ctx, f)
}

func (l *lockedRepo) ListMutations(ctx context.Context, f *dto.MovementFilter) ([]model.InventoryMutation, int, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.view().ListMutations(ctx, f)
}

// Writes outside WithinTx still go through a transaction so that a failure
// leaves no partial state.
func (l *lockedRepo) Create(ctx context.Context, rec *model.InventoryRecord) error {
	return l.store.WithinTx(ctx, sql.LevelDefault, func(ctx context.Context, repo inventory.Repository) error {
		return repo.Create(ctx, rec)
	})
}

func (l *lockedRepo) CreateOrIncrement(ctx context.Context, key model.KeyTuple, qty int64, meta dto.RecordMetadata) (rec *model.InventoryRecord, err error) {
	err = l.store.WithinTx(ctx, sql.LevelDefault, func(ctx context.Context, repo inventory.Repository) error {
		rec, err = repo.CreateOrIncrement(ctx, key, qty, meta)
		return err
	})
	return rec, err
}

func (l *lockedRepo) ConditionalDecrement(ctx context.Context, id string, qty int64) (n int64, err error) {
	err = l.store.WithinTx(ctx, sql.LevelDefault, func(ctx context.Context, repo inventory.Repository) error {
		n, err = repo.ConditionalDecrement(ctx, id, qty)
		return err
	})
	return n, err
}

func (l *lockedRepo) SetQuantity(ctx context.Context, id string, qty int64) (rec *model.InventoryRecord, err error) {
	err = l.store.WithinTx(ctx, sql.LevelDefault, func(ctx context.Context, repo inventory.Repository) error {
		rec, err = repo.SetQuantity(ctx, id, qty)
		return err
	})
	return rec, err
}

func (l *lockedRepo) InsertMutation(ctx context.Context, m *model.InventoryMutation) error {
	return l.store.WithinTx(ctx, sql.LevelDefault, func(ctx context.Context, repo inventory.Repository) error {
		return repo.InsertMutation(ctx, m)
	})
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// optionalMatch treats a nil filter as "any".
func optionalMatch(v, filter *string) bool {
	if filter == nil {
		return true
	}
	return v != nil && *v == *filter
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
