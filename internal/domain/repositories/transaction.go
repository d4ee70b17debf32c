package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// Every content write that touches a snippet's title, blocks or tags runs
// inside ExecTx together with the matching search index update, so either
// both land or neither does.
type TransactionManager interface {
	// ExecTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	ExecTx(ctx context.Context, fn TxFn) error
}
