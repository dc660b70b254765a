package middleware

import (
	"context"
	"database/sql"

	"github.com/rise-and-shine/cmdbus/command"
	"github.com/uptrace/bun"
)

// TxRunner runs fn inside a database transaction. *bun.DB implements it.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

type txKey struct{}

// Transaction runs the rest of the chain inside a bun transaction that commits when the
// chain succeeds and rolls back when it fails. Handlers reach the transaction through
// TxFromContext or IDB. Nested dispatches join the transaction already in the context.
type Transaction struct {
	db   TxRunner
	opts *sql.TxOptions
}

// NewTransaction uses opts for every transaction; nil selects the driver defaults.
func NewTransaction(db TxRunner, opts *sql.TxOptions) *Transaction {
	return &Transaction{db: db, opts: opts}
}

func (m *Transaction) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	if _, ok := TxFromContext(ctx); ok {
		return next(ctx, cmd)
	}

	var result any
	err := m.db.RunInTx(ctx, m.opts, func(ctx context.Context, tx bun.Tx) error {
		var err error
		result, err = next(context.WithValue(ctx, txKey{}, tx), cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TxFromContext returns the transaction opened by Transaction, if any.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

// IDB returns the transaction in ctx, or db when there is none.
func IDB(ctx context.Context, db bun.IDB) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}
