package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradereads/tradereads-api/internal/domain"
	"github.com/tradereads/tradereads-api/internal/store"
)

// TradeRequestStore implements store.TradeRequestStore in memory.
type TradeRequestStore struct {
	db *DB
	tx *journal
}

// NewTradeRequestStore creates a TradeRequestStore backed by db.
func NewTradeRequestStore(db *DB) *TradeRequestStore {
	return &TradeRequestStore{db: db}
}

var _ store.TradeRequestStore = (*TradeRequestStore)(nil)

func (s *TradeRequestStore) read(fn func()) {
	if s.tx == nil {
		s.db.mu.RLock()
		defer s.db.mu.RUnlock()
	}
	fn()
}

func (s *TradeRequestStore) write(fn func() error) error {
	if s.tx == nil {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn()
}

// putTrade stores r and keeps the time index in step, journaling the previous state.
func (db *DB) putTrade(j *journal, r *domain.TradeRequest) {
	prev, existed := db.trades[r.ID]
	if existed {
		db.tradesByTime.Delete(tradeKey{createdAt: prev.CreatedAt, id: prev.ID})
	}
	db.trades[r.ID] = r
	db.tradesByTime.ReplaceOrInsert(tradeKey{createdAt: r.CreatedAt, id: r.ID})

	j.record(func() {
		db.tradesByTime.Delete(tradeKey{createdAt: r.CreatedAt, id: r.ID})
		if existed {
			db.trades[r.ID] = prev
			db.tradesByTime.ReplaceOrInsert(tradeKey{createdAt: prev.CreatedAt, id: prev.ID})
		} else {
			delete(db.trades, r.ID)
		}
	})
}

// removeTrade deletes a request and its index entry, journaling the removal.
func (db *DB) removeTrade(j *journal, id uuid.UUID) bool {
	prev, ok := db.trades[id]
	if !ok {
		return false
	}
	delete(db.trades, id)
	db.tradesByTime.Delete(tradeKey{createdAt: prev.CreatedAt, id: id})

	j.record(func() {
		db.trades[id] = prev
		db.tradesByTime.ReplaceOrInsert(tradeKey{createdAt: prev.CreatedAt, id: id})
	})
	return true
}

func (s *TradeRequestStore) findPending(requesterID, bookID uuid.UUID) *domain.TradeRequest {
	for _, r := range s.db.trades {
		if r.RequesterID == requesterID && r.RequestedBookID == bookID && r.Status == domain.TradeStatusPending {
			return r
		}
	}
	return nil
}

// Create implements store.TradeRequestStore.Create.
func (s *TradeRequestStore) Create(ctx context.Context, req *domain.TradeRequest) error {
	if req.ID == uuid.Nil || !req.Status.Valid() {
		return store.NewStoreError("trade request", "create", "validation failed", store.ErrInvalidEntity)
	}
	return s.write(func() error {
		if _, exists := s.db.trades[req.ID]; exists {
			return store.ErrDuplicate
		}
		if _, ok := s.db.books[req.RequestedBookID]; !ok {
			return store.NewStoreError("trade request", "create", "requested book does not exist", store.ErrInvalidEntity)
		}
		if req.OfferedBookID != nil {
			if _, ok := s.db.books[*req.OfferedBookID]; !ok {
				return store.NewStoreError("trade request", "create", "offered book does not exist", store.ErrInvalidEntity)
			}
		}
		if req.Status == domain.TradeStatusPending && s.findPending(req.RequesterID, req.RequestedBookID) != nil {
			return store.ErrPendingExists
		}
		s.db.putTrade(s.tx, cloneTrade(req))
		return nil
	})
}

// GetByID implements store.TradeRequestStore.GetByID.
func (s *TradeRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TradeRequest, error) {
	var (
		req *domain.TradeRequest
		err error
	)
	s.read(func() {
		r, ok := s.db.trades[id]
		if !ok {
			err = store.ErrTradeRequestNotFound
			return
		}
		req = cloneTrade(r)
	})
	return req, err
}

// FindPending implements store.TradeRequestStore.FindPending.
func (s *TradeRequestStore) FindPending(ctx context.Context, requesterID, bookID uuid.UUID) (*domain.TradeRequest, error) {
	var req *domain.TradeRequest
	s.read(func() {
		if r := s.findPending(requesterID, bookID); r != nil {
			req = cloneTrade(r)
		}
	})
	if req == nil {
		return nil, store.ErrTradeRequestNotFound
	}
	return req, nil
}

// List implements store.TradeRequestStore.List.
func (s *TradeRequestStore) List(ctx context.Context, filter domain.TradeRequestFilter) ([]*domain.TradeRequest, error) {
	var reqs []*domain.TradeRequest
	s.read(func() {
		s.db.tradesByTime.Ascend(func(key tradeKey) bool {
			if r := s.db.trades[key.id]; r != nil && filter.Matches(r) {
				reqs = append(reqs, cloneTrade(r))
			}
			return true
		})
	})
	return reqs, nil
}

// Count implements store.TradeRequestStore.Count.
func (s *TradeRequestStore) Count(ctx context.Context, filter domain.TradeRequestFilter) (int64, error) {
	var n int64
	s.read(func() {
		for _, r := range s.db.trades {
			if filter.Matches(r) {
				n++
			}
		}
	})
	return n, nil
}

// HasActiveForBook implements store.TradeRequestStore.HasActiveForBook.
func (s *TradeRequestStore) HasActiveForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var active bool
	s.read(func() {
		for _, r := range s.db.trades {
			if r.Status.IsActive() && r.References(bookID) {
				active = true
				return
			}
		}
	})
	return active, nil
}

// CompareAndSetStatus implements store.TradeRequestStore.CompareAndSetStatus.
func (s *TradeRequestStore) CompareAndSetStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.TradeStatus,
	at time.Time,
) (bool, error) {
	if !to.Valid() {
		return false, store.ErrInvalidEntity
	}
	swapped := false
	err := s.write(func() error {
		existing, ok := s.db.trades[id]
		if !ok || existing.Status != from {
			return nil
		}
		updated := cloneTrade(existing)
		updated.Status = to
		updated.UpdatedAt = at.UTC()
		s.db.putTrade(s.tx, updated)
		swapped = true
		return nil
	})
	return swapped, err
}

// Delete implements store.TradeRequestStore.Delete.
func (s *TradeRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.write(func() error {
		if !s.db.removeTrade(s.tx, id) {
			return store.ErrTradeRequestNotFound
		}
		return nil
	})
}
