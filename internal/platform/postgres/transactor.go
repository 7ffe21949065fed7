package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/tradereads/tradereads-api/internal/store"
)

// Transactor implements store.Transactor with a database transaction.
type Transactor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactor creates a Transactor for db.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transactor{db: db, logger: logger}
}

var _ store.Transactor = (*Transactor)(nil)

// RunInTx implements store.Transactor.RunInTx
func (t *Transactor) RunInTx(ctx context.Context, fn store.TxStoresFn) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.TxStores{
			Books:         NewPostgresBookStore(tx, t.logger),
			TradeRequests: NewPostgresTradeRequestStore(tx, t.logger),
		})
	})
}
