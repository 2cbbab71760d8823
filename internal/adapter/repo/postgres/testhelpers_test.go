package postgres_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements the subset of pgx.Rows the repos touch; the embedded
// interface covers the rest and panics if reached.
type rowsStub struct {
	pgx.Rows
	scans []func(dest ...any) error
	i     int
	err   error
}

func (r *rowsStub) Close() {}
func (r *rowsStub) Err() error {
	return r.err
}
func (r *rowsStub) Next() bool {
	return r.i < len(r.scans)
}
func (r *rowsStub) Scan(dest ...any) error {
	fn := r.scans[r.i]
	r.i++
	return fn(dest...)
}

// poolStub implements postgres.PgxPool for tests.
// Shared across the *_test.go files in this package.
type poolStub struct {
	execErr  error
	execSQL  []string
	execArgs [][]any
	row      rowStub
	rows     *rowsStub
	queryErr error
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	return pgconn.CommandTag{}, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if p.row.scan == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row
}

func (p *poolStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.rows == nil {
		return &rowsStub{}, nil
	}
	return p.rows, nil
}
