package middleware_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/rise-and-shine/cmdbus/middleware"
)

type fakeDB struct {
	begun      int
	committed  int
	rolledBack int
}

func (f *fakeDB) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.begun++
	if err := fn(ctx, bun.Tx{}); err != nil {
		f.rolledBack++
		return err
	}
	f.committed++
	return nil
}

func TestTransaction_Commit(t *testing.T) {
	db := &fakeDB{}
	mw := middleware.NewTransaction(db, nil)

	var inTx bool
	res, err := mw.Execute(t.Context(), ChargeCardCommand{}, func(ctx context.Context, _ any) (any, error) {
		_, inTx = middleware.TxFromContext(ctx)
		return "charged", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "charged", res)
	assert.True(t, inTx)
	assert.Equal(t, 1, db.committed)
	assert.Zero(t, db.rolledBack)
}

func TestTransaction_Rollback(t *testing.T) {
	db := &fakeDB{}
	failure := internalErr("DB_DOWN")

	res, err := middleware.NewTransaction(db, nil).Execute(t.Context(), ChargeCardCommand{}, returning("partial", failure))

	require.ErrorIs(t, err, failure)
	assert.Nil(t, res)
	assert.Equal(t, 1, db.rolledBack)
	assert.Zero(t, db.committed)
}

func TestTransaction_NestedJoins(t *testing.T) {
	db := &fakeDB{}
	mw := middleware.NewTransaction(db, nil)

	_, err := mw.Execute(t.Context(), ChargeCardCommand{}, func(ctx context.Context, cmd any) (any, error) {
		return mw.Execute(ctx, cmd, returning("inner", nil))
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)
}

func TestIDB(t *testing.T) {
	_, ok := middleware.TxFromContext(t.Context())
	assert.False(t, ok)
	assert.Nil(t, middleware.IDB(t.Context(), nil))

	_, err := middleware.NewTransaction(&fakeDB{}, nil).Execute(t.Context(), ChargeCardCommand{},
		func(ctx context.Context, _ any) (any, error) {
			assert.IsType(t, bun.Tx{}, middleware.IDB(ctx, nil))
			return nil, nil
		})
	require.NoError(t, err)
}
