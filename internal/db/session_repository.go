package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

const sessionColumns = "id, respondent_id, module_id, status, started_at, closed_at"

func (r *PgSessionRepository) AcquireOpenSession(ctx context.Context, respondentId uuid.UUID, moduleId string) (Session, error) {
	q := conn(ctx, r.pool)

	// survey_sessions_one_open makes this a no-op when an OPEN session exists.
	_, err := q.Exec(ctx, `
		INSERT INTO survey_sessions (id, respondent_id, module_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (respondent_id) WHERE status = 'OPEN' DO NOTHING`,
		uuid.New(), respondentId, moduleId)
	if err != nil {
		return Session{}, fmt.Errorf("failed to open session: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM survey_sessions
		WHERE respondent_id = $1 AND status = 'OPEN'
		ORDER BY started_at DESC
		LIMIT 1`, respondentId)
	if err != nil {
		return Session{}, fmt.Errorf("failed to get open session: %w", err)
	}

	session, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Session])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, fmt.Errorf("open session for respondent %s: %w", respondentId, ErrNotFound)
		}
		return Session{}, fmt.Errorf("failed to get open session: %w", err)
	}
	return session, nil
}

func (r *PgSessionRepository) ListSessions(ctx context.Context, respondentId uuid.UUID) ([]Session, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+sessionColumns+`
		FROM survey_sessions
		WHERE respondent_id = $1
		ORDER BY started_at ASC`, respondentId)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowToStructByName[Session])
}

func (r *PgSessionRepository) CloseSession(ctx context.Context, sessionId uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE survey_sessions SET status = 'CLOSED', closed_at = now()
		WHERE id = $1 AND status = 'OPEN'`, sessionId)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open session %s: %w", sessionId, ErrNotFound)
	}
	return nil
}

func (r *PgSessionRepository) InsertAnswer(ctx context.Context, answer Answer) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO survey_answers (session_id, question_id, answer)
		VALUES ($1, $2, $3)`,
		answer.SessionId, answer.QuestionId, answer.Value)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) ListAnsweredQuestions(ctx context.Context, sessionId uuid.UUID) ([]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT question_id
		FROM survey_answers
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to query answered questions: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PgSessionRepository) GetAnswerValue(ctx context.Context, sessionId uuid.UUID, questionId string) (string, bool, error) {
	var value *string
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT NULLIF(answer->>'value', '')
		FROM survey_answers
		WHERE session_id = $1 AND question_id = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, sessionId, questionId).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get answer: %w", err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}
