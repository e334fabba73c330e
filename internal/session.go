package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tomashoffer/afripulse/internal/db"
)

const DefaultFallbackCategory = "ONLINE"

// SessionEngine walks a respondent through the media daily module one
// inbound message at a time. Progress is derived from the stored answers, so
// the engine holds no per-respondent state.
type SessionEngine struct {
	store            db.Store
	module           db.Module
	fallbackCategory string
	log              *slog.Logger
}

// NewSessionEngine returns an engine for the media daily module. It panics
// if the module is missing from the catalog.
func NewSessionEngine(store db.Store, fallbackCategory string) *SessionEngine {
	e, err := newSessionEngine(store, db.ModuleMediaDaily, fallbackCategory)
	if err != nil {
		panic(err)
	}
	return e
}

func newSessionEngine(store db.Store, moduleId, fallbackCategory string) (*SessionEngine, error) {
	module, ok := db.LookupModule(moduleId)
	if !ok {
		return nil, fmt.Errorf("unknown survey module %q", moduleId)
	}
	if fallbackCategory == "" {
		fallbackCategory = DefaultFallbackCategory
	}
	return &SessionEngine{
		store:            store,
		module:           module,
		fallbackCategory: strings.ToUpper(fallbackCategory),
		log:              slog.Default(),
	}, nil
}

// Advance records text as the answer to the next unanswered question of the
// respondent's open session. Answering the last question writes the media
// event and closes the session in one transaction.
func (e *SessionEngine) Advance(ctx context.Context, respondentId uuid.UUID, text string) error {
	session, err := e.store.AcquireOpenSession(ctx, respondentId, e.module.Id)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}

	answered, err := e.store.ListAnsweredQuestions(ctx, session.Id)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}

	question, last, ok := e.module.NextQuestion(answered)
	if !ok {
		e.log.Debug("Session already complete", "session_id", session.Id)
		return nil
	}

	answer := db.Answer{
		SessionId:  session.Id,
		QuestionId: question.Id,
		Value:      db.AnswerValue{Value: question.Normalize(text)},
	}

	if !last {
		if err := e.store.InsertAnswer(ctx, answer); err != nil {
			return fmt.Errorf("record answer: %w", err)
		}
		e.log.Debug("Answer recorded", "session_id", session.Id, "question_id", question.Id)
		return nil
	}

	return e.store.WithTx(ctx, func(ctx context.Context) error {
		return e.complete(ctx, session, answer)
	})
}

func (e *SessionEngine) complete(ctx context.Context, session db.Session, answer db.Answer) error {
	if err := e.store.InsertAnswer(ctx, answer); err != nil {
		return fmt.Errorf("record answer: %w", err)
	}

	respondent, err := e.store.GetRespondent(ctx, session.RespondentId)
	if err != nil {
		return fmt.Errorf("load respondent: %w", err)
	}

	category, found, err := e.store.GetAnswerValue(ctx, session.Id, db.QuestionMediaCategory)
	if err != nil {
		return fmt.Errorf("load category answer: %w", err)
	}
	if !found {
		category = e.fallbackCategory
	}

	event := db.MediaEvent{
		Id:           uuid.New(),
		RespondentId: respondent.Id,
		CountryISO2:  respondent.CountryISO2,
		Category:     strings.ToUpper(category),
		OutletName:   answer.Value.Value,
	}
	if err := e.store.InsertMediaEvent(ctx, event); err != nil {
		return fmt.Errorf("record media event: %w", err)
	}

	if err := e.store.CloseSession(ctx, session.Id); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	e.log.Info("Session completed",
		"session_id", session.Id,
		"country", event.CountryISO2,
		"category", event.Category)
	return nil
}
