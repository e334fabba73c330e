package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tomashoffer/afripulse/internal/db"
)

// FailingStore wraps a db.Store and returns Err from the methods named in
// FailOn. Everything else is delegated to the wrapped store.
type FailingStore struct {
	db.Store
	Err error

	mu     sync.Mutex
	failOn map[string]bool
	calls  map[string]int
}

func NewFailingStore(store db.Store, err error, methods ...string) *FailingStore {
	m := &FailingStore{
		Store:  store,
		Err:    err,
		failOn: make(map[string]bool),
		calls:  make(map[string]int),
	}
	for _, name := range methods {
		m.failOn[name] = true
	}
	return m
}

func (m *FailingStore) fail(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if m.failOn[method] {
		return m.Err
	}
	return nil
}

// Calls reports how many times method was invoked through the wrapper.
func (m *FailingStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *FailingStore) Ping(ctx context.Context) error {
	if err := m.fail("Ping"); err != nil {
		return err
	}
	return m.Store.Ping(ctx)
}

func (m *FailingStore) UpsertRespondent(ctx context.Context, phoneHash, countryISO2, lang string) (db.Respondent, error) {
	if err := m.fail("UpsertRespondent"); err != nil {
		return db.Respondent{}, err
	}
	return m.Store.UpsertRespondent(ctx, phoneHash, countryISO2, lang)
}

func (m *FailingStore) InsertOptOut(ctx context.Context, phoneHash, reason string) error {
	if err := m.fail("InsertOptOut"); err != nil {
		return err
	}
	return m.Store.InsertOptOut(ctx, phoneHash, reason)
}

func (m *FailingStore) AcquireOpenSession(ctx context.Context, respondentId uuid.UUID, moduleId string) (db.Session, error) {
	if err := m.fail("AcquireOpenSession"); err != nil {
		return db.Session{}, err
	}
	return m.Store.AcquireOpenSession(ctx, respondentId, moduleId)
}

func (m *FailingStore) InsertAnswer(ctx context.Context, answer db.Answer) error {
	if err := m.fail("InsertAnswer"); err != nil {
		return err
	}
	return m.Store.InsertAnswer(ctx, answer)
}

func (m *FailingStore) InsertMediaEvent(ctx context.Context, event db.MediaEvent) error {
	if err := m.fail("InsertMediaEvent"); err != nil {
		return err
	}
	return m.Store.InsertMediaEvent(ctx, event)
}

func (m *FailingStore) CloseSession(ctx context.Context, sessionId uuid.UUID) error {
	if err := m.fail("CloseSession"); err != nil {
		return err
	}
	return m.Store.CloseSession(ctx, sessionId)
}

func (m *FailingStore) CountMediaEvents(ctx context.Context, filter db.MediaFilter) (int, error) {
	if err := m.fail("CountMediaEvents"); err != nil {
		return 0, err
	}
	return m.Store.CountMediaEvents(ctx, filter)
}

func (m *FailingStore) ListCountries(ctx context.Context) ([]db.Country, error) {
	if err := m.fail("ListCountries"); err != nil {
		return nil, err
	}
	return m.Store.ListCountries(ctx)
}

// WithTx delegates to the wrapped store's transaction but keeps routing
// repository calls made inside fn through the wrapper.
func (m *FailingStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.fail("WithTx"); err != nil {
		return err
	}
	return m.Store.WithTx(ctx, fn)
}
