package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgMediaRepository struct {
	pool *pgxpool.Pool
}

func NewPgMediaRepository(pool *pgxpool.Pool) *PgMediaRepository {
	return &PgMediaRepository{pool: pool}
}

func (r *PgMediaRepository) InsertMediaEvent(ctx context.Context, event MediaEvent) error {
	query := `
		INSERT INTO media_daily_events (id, respondent_id, country_iso2, category, outlet_name, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))`

	var createdAt any
	if !event.CreatedAt.IsZero() {
		createdAt = event.CreatedAt
	}

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		event.Id,
		event.RespondentId,
		event.CountryISO2,
		event.Category,
		event.OutletName,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media event: %w", err)
	}
	return nil
}

// mediaWhere builds the shared WHERE clause for the aggregation queries.
func mediaWhere(filter MediaFilter) (string, []any) {
	where := "WHERE country_iso2 = $1 AND created_at >= $2"
	args := []any{filter.CountryISO2, filter.Since}
	if filter.MatchesCategory() {
		where += " AND category = $3"
		args = append(args, filter.Category)
	}
	return where, args
}

func (r *PgMediaRepository) CountMediaEvents(ctx context.Context, filter MediaFilter) (int, error) {
	where, args := mediaWhere(filter)

	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*)::int
		FROM media_daily_events
		`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count media events: %w", err)
	}
	return count, nil
}

func (r *PgMediaRepository) CountByOutlet(ctx context.Context, filter MediaFilter, limit int) ([]OutletCount, error) {
	where, args := mediaWhere(filter)
	args = append(args, limit)

	rows, err := conn(ctx, r.pool).Query(ctx, fmt.Sprintf(`
		SELECT outlet_name AS item, COUNT(*)::int AS responses
		FROM media_daily_events
		%s
		GROUP BY outlet_name
		ORDER BY responses DESC, item ASC
		LIMIT $%d`, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outlet counts: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[OutletCount])
}

// ListMediaEvents returns every stored media event, oldest first.
func (r *PgMediaRepository) ListMediaEvents(ctx context.Context) ([]MediaEvent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, respondent_id, country_iso2, category, outlet_name, created_at
		FROM media_daily_events
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query media events: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[MediaEvent])
}
