package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRespondentRepository struct {
	pool *pgxpool.Pool
}

func NewPgRespondentRepository(pool *pgxpool.Pool) *PgRespondentRepository {
	return &PgRespondentRepository{pool: pool}
}

const respondentColumns = "id, phone_hash, country_iso2, lang, created_at, last_active_at"

func (r *PgRespondentRepository) UpsertRespondent(ctx context.Context, phoneHash, countryISO2, lang string) (Respondent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		INSERT INTO respondents (id, phone_hash, country_iso2, lang, last_active_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (phone_hash) DO UPDATE SET last_active_at = now()
		RETURNING `+respondentColumns,
		uuid.New(), phoneHash, countryISO2, lang)
	if err != nil {
		return Respondent{}, fmt.Errorf("failed to upsert respondent: %w", err)
	}

	respondent, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Respondent])
	if err != nil {
		return Respondent{}, fmt.Errorf("failed to upsert respondent: %w", err)
	}
	return respondent, nil
}

func (r *PgRespondentRepository) GetRespondent(ctx context.Context, id uuid.UUID) (Respondent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+respondentColumns+`
		FROM respondents
		WHERE id = $1`, id)
	if err != nil {
		return Respondent{}, fmt.Errorf("failed to get respondent: %w", err)
	}

	respondent, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Respondent])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Respondent{}, fmt.Errorf("respondent %s: %w", id, ErrNotFound)
		}
		return Respondent{}, fmt.Errorf("failed to get respondent: %w", err)
	}
	return respondent, nil
}

func (r *PgRespondentRepository) InsertOptOut(ctx context.Context, phoneHash, reason string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO opt_outs (phone_hash, reason)
		VALUES ($1, $2)
		ON CONFLICT (phone_hash) DO NOTHING`,
		phoneHash, reason)
	if err != nil {
		return fmt.Errorf("failed to insert opt-out: %w", err)
	}
	return nil
}

// ListOptOuts lists every recorded opt-out, oldest first.
func (r *PgRespondentRepository) ListOptOuts(ctx context.Context) ([]OptOut, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT phone_hash, reason, created_at
		FROM opt_outs
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query opt-outs: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[OptOut])
}
