package memory

import (
	"context"

	"github.com/tradereads/tradereads-api/internal/store"
)

// Transactor implements store.Transactor by holding the DB write lock for
// the whole unit of work and undoing journaled writes when it fails.
type Transactor struct {
	db *DB
}

// NewTransactor creates a Transactor for db.
func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

var _ store.Transactor = (*Transactor)(nil)

// RunInTx implements store.Transactor.RunInTx.
func (t *Transactor) RunInTx(ctx context.Context, fn store.TxStoresFn) (err error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
		if err != nil {
			j.rollback()
		}
	}()

	return fn(ctx, store.TxStores{
		Books:         &BookStore{db: t.db, tx: j},
		TradeRequests: &TradeRequestStore{db: t.db, tx: j},
	})
}
