package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tomashoffer/afripulse/internal/db"
)

const schema = `
	CREATE TABLE IF NOT EXISTS countries (
		iso2 CHAR(2) PRIMARY KEY,
		name TEXT NOT NULL,
		default_language TEXT NOT NULL DEFAULT 'en'
	);

	CREATE TABLE IF NOT EXISTS survey_modules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cadence TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS survey_questions (
		id TEXT PRIMARY KEY,
		module_id TEXT NOT NULL REFERENCES survey_modules(id),
		position SMALLINT NOT NULL,
		question_type TEXT NOT NULL,
		prompt TEXT NOT NULL,
		choices JSONB,
		meta JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS respondents (
		id UUID PRIMARY KEY,
		phone_hash TEXT NOT NULL UNIQUE,
		country_iso2 CHAR(2) NOT NULL,
		lang TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS opt_outs (
		phone_hash TEXT PRIMARY KEY,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS survey_sessions (
		id UUID PRIMARY KEY,
		respondent_id UUID NOT NULL REFERENCES respondents(id),
		module_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
		started_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		closed_at TIMESTAMPTZ
	);

	CREATE UNIQUE INDEX IF NOT EXISTS survey_sessions_one_open
		ON survey_sessions (respondent_id) WHERE status = 'OPEN';

	CREATE TABLE IF NOT EXISTS survey_answers (
		id BIGSERIAL PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES survey_sessions(id),
		question_id TEXT NOT NULL,
		answer JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	);

	CREATE INDEX IF NOT EXISTS survey_answers_session_idx ON survey_answers (session_id);

	CREATE TABLE IF NOT EXISTS media_daily_events (
		id UUID PRIMARY KEY,
		respondent_id UUID NOT NULL,
		country_iso2 CHAR(2) NOT NULL,
		category TEXT NOT NULL,
		outlet_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS media_daily_events_country_created_idx
		ON media_daily_events (country_iso2, created_at);
`

// Migrate creates any missing tables and indexes. Safe to call repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Seed inserts the static country and survey catalog, leaving existing rows
// untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	for _, c := range db.Countries() {
		_, err := pool.Exec(ctx, `
			INSERT INTO countries (iso2, name, default_language) VALUES ($1, $2, $3)
			ON CONFLICT (iso2) DO NOTHING`,
			c.ISO2, c.Name, c.DefaultLanguage)
		if err != nil {
			return fmt.Errorf("failed to seed country %s: %w", c.ISO2, err)
		}
	}

	for _, m := range db.Modules() {
		_, err := pool.Exec(ctx, `
			INSERT INTO survey_modules (id, name, cadence) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			m.Id, m.Name, m.Cadence)
		if err != nil {
			return fmt.Errorf("failed to seed module %s: %w", m.Id, err)
		}

		for i, q := range m.Questions {
			meta := q.Meta
			if meta == nil {
				meta = map[string]int{}
			}
			_, err := pool.Exec(ctx, `
				INSERT INTO survey_questions (id, module_id, position, question_type, prompt, choices, meta)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO NOTHING`,
				q.Id, m.Id, i, string(q.Type), q.Prompt, q.Choices, meta)
			if err != nil {
				return fmt.Errorf("failed to seed question %s: %w", q.Id, err)
			}
		}
	}

	slog.Info("Catalog seeded", "countries", len(db.Countries()), "modules", len(db.Modules()))
	return nil
}

// ResetDB drops and recreates all tables in the database
func ResetDB(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		DROP TABLE IF EXISTS media_daily_events;
		DROP TABLE IF EXISTS survey_answers;
		DROP TABLE IF EXISTS survey_sessions;
		DROP TABLE IF EXISTS opt_outs;
		DROP TABLE IF EXISTS respondents;
		DROP TABLE IF EXISTS survey_questions;
		DROP TABLE IF EXISTS survey_modules;
		DROP TABLE IF EXISTS countries;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		return err
	}
	return Seed(ctx, pool)
}
