package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionKey is a type-safe key for storing transactions in context
type TransactionKey struct{}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the transaction carried by ctx, or the pool when there is none.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(TransactionKey{}).(pgx.Tx); ok && tx != nil {
		return tx
	}
	return pool
}

type PgStore struct {
	*PgRespondentRepository
	*PgSessionRepository
	*PgMediaRepository
	pool *pgxpool.Pool
}

var _ Store = (*PgStore)(nil)

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		PgRespondentRepository: NewPgRespondentRepository(pool),
		PgSessionRepository:    NewPgSessionRepository(pool),
		PgMediaRepository:      NewPgMediaRepository(pool),
		pool:                   pool,
	}
}

func (s *PgStore) Ping(ctx context.Context) error {
	if _, err := conn(ctx, s.pool).Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the outer transaction.
	if tx, ok := ctx.Value(TransactionKey{}).(pgx.Tx); ok && tx != nil {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PgStore) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, `
		SELECT iso2, name, default_language
		FROM countries
		ORDER BY iso2`)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[Country])
}

func (s *PgStore) Close() {
	s.pool.Close()
}
