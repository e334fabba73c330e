package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type RespondentRepository interface {
	UpsertRespondent(ctx context.Context, phoneHash, countryISO2, lang string) (Respondent, error)
	GetRespondent(ctx context.Context, id uuid.UUID) (Respondent, error)
	InsertOptOut(ctx context.Context, phoneHash, reason string) error
	ListOptOuts(ctx context.Context) ([]OptOut, error)
}

type SessionRepository interface {
	// AcquireOpenSession returns the respondent's most recent OPEN session,
	// creating one bound to moduleId when none exists. Concurrent callers for
	// the same respondent observe the same session.
	AcquireOpenSession(ctx context.Context, respondentId uuid.UUID, moduleId string) (Session, error)
	ListSessions(ctx context.Context, respondentId uuid.UUID) ([]Session, error)
	// CloseSession fails with ErrNotFound unless the session is still OPEN.
	CloseSession(ctx context.Context, sessionId uuid.UUID) error
	InsertAnswer(ctx context.Context, answer Answer) error
	ListAnsweredQuestions(ctx context.Context, sessionId uuid.UUID) ([]string, error)
	// GetAnswerValue reports found=false when the question has no answer or
	// the stored document carries no non-empty string value.
	GetAnswerValue(ctx context.Context, sessionId uuid.UUID, questionId string) (value string, found bool, err error)
}

type MediaEventRepository interface {
	InsertMediaEvent(ctx context.Context, event MediaEvent) error
	CountMediaEvents(ctx context.Context, filter MediaFilter) (int, error)
	CountByOutlet(ctx context.Context, filter MediaFilter, limit int) ([]OutletCount, error)
	ListMediaEvents(ctx context.Context) ([]MediaEvent, error)
}

type CatalogRepository interface {
	ListCountries(ctx context.Context) ([]Country, error)
}

// Store is the persistence gateway shared by every service. PgStore and
// memstore.Store implement it.
type Store interface {
	RespondentRepository
	SessionRepository
	MediaEventRepository
	CatalogRepository

	Ping(ctx context.Context) error
	// WithTx runs fn so that every repository call made with the context it
	// receives commits or rolls back together.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close()
}
