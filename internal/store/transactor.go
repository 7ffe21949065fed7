package store

import "context"

// TxStores are the stores bound to a single unit of work.
type TxStores struct {
	Books         BookStore
	TradeRequests TradeRequestStore
}

// TxStoresFn is the body of a unit of work.
type TxStoresFn func(ctx context.Context, stores TxStores) error

// Transactor runs a function as one all-or-nothing unit of work.
// If fn returns an error, every write made through the given stores is discarded.
type Transactor interface {
	RunInTx(ctx context.Context, fn TxStoresFn) error
}
