// Package memstore is an in-memory db.Store used when no PostgreSQL database
// is configured, and as the fixture store in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomashoffer/afripulse/internal/db"
)

type Store struct {
	// txMu is held for the whole of a WithTx call. mu guards the fields.
	txMu sync.Mutex
	mu   sync.Mutex
	now  func() time.Time

	respondents map[uuid.UUID]db.Respondent
	byHash      map[string]uuid.UUID
	optOuts     []db.OptOut
	sessions    []db.Session
	answers     []db.Answer
	events      []db.MediaEvent
	countries   []db.Country
}

var _ db.Store = (*Store)(nil)

type txKey struct{}

// lock waits for any running transaction unless ctx belongs to it.
func (s *Store) lock(ctx context.Context) func() {
	if tx, _ := ctx.Value(txKey{}).(*Store); tx == s {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// New returns an empty store holding only the country catalog.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		respondents: make(map[uuid.UUID]db.Respondent),
		byHash:      make(map[string]uuid.UUID),
		countries:   db.Countries(),
	}
}

// NewSeeded returns a store pre-loaded with a dozen recent media events so
// the dashboard has something to show without a database.
func NewSeeded() *Store {
	s := New()
	now := s.now()
	fixtures := []struct{ country, category, outlet string }{
		{"NG", "TV", "Channels TV"},
		{"NG", "TV", "NTA"},
		{"NG", "TV", "Channels TV"},
		{"NG", "RADIO", "Cool FM"},
		{"NG", "RADIO", "Wazobia FM"},
		{"NG", "ONLINE", "Punch"},
		{"NG", "ONLINE", "Vanguard"},
		{"NG", "SOCIAL", "Facebook"},
		{"NG", "SOCIAL", "Twitter"},
		{"NG", "SOCIAL", "Instagram"},
		{"ZA", "TV", "SABC"},
		{"ZA", "RADIO", "5FM"},
	}
	for _, f := range fixtures {
		s.events = append(s.events, db.MediaEvent{
			Id:           uuid.New(),
			RespondentId: uuid.New(),
			CountryISO2:  f.country,
			Category:     f.category,
			OutletName:   f.outlet,
			CreatedAt:    now,
		})
	}
	return s
}

// SetClock replaces the time source used for created/started timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) UpsertRespondent(ctx context.Context, phoneHash, countryISO2, lang string) (db.Respondent, error) {
	defer s.lock(ctx)()

	now := s.now()
	if id, ok := s.byHash[phoneHash]; ok {
		r := s.respondents[id]
		r.LastActiveAt = now
		s.respondents[id] = r
		return r, nil
	}

	r := db.Respondent{
		Id:           uuid.New(),
		PhoneHash:    phoneHash,
		CountryISO2:  countryISO2,
		Lang:         lang,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.respondents[r.Id] = r
	s.byHash[phoneHash] = r.Id
	return r, nil
}

func (s *Store) GetRespondent(ctx context.Context, id uuid.UUID) (db.Respondent, error) {
	defer s.lock(ctx)()

	r, ok := s.respondents[id]
	if !ok {
		return db.Respondent{}, fmt.Errorf("respondent %s: %w", id, db.ErrNotFound)
	}
	return r, nil
}

// Respondents returns every stored respondent in no particular order.
func (s *Store) Respondents() []db.Respondent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.Respondent, 0, len(s.respondents))
	for _, r := range s.respondents {
		out = append(out, r)
	}
	return out
}

func (s *Store) InsertOptOut(ctx context.Context, phoneHash, reason string) error {
	defer s.lock(ctx)()

	for _, o := range s.optOuts {
		if o.PhoneHash == phoneHash {
			return nil
		}
	}
	s.optOuts = append(s.optOuts, db.OptOut{PhoneHash: phoneHash, Reason: reason, CreatedAt: s.now()})
	return nil
}

func (s *Store) ListOptOuts(ctx context.Context) ([]db.OptOut, error) {
	defer s.lock(ctx)()

	return append([]db.OptOut(nil), s.optOuts...), nil
}

func (s *Store) AcquireOpenSession(ctx context.Context, respondentId uuid.UUID, moduleId string) (db.Session, error) {
	defer s.lock(ctx)()

	// Sessions are appended in start order, so the last match is the newest.
	for i := len(s.sessions) - 1; i >= 0; i-- {
		sess := s.sessions[i]
		if sess.RespondentId == respondentId && sess.Status == db.SessionOpen {
			return sess, nil
		}
	}

	sess := db.Session{
		Id:           uuid.New(),
		RespondentId: respondentId,
		ModuleId:     moduleId,
		Status:       db.SessionOpen,
		StartedAt:    s.now(),
	}
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, respondentId uuid.UUID) ([]db.Session, error) {
	defer s.lock(ctx)()

	var out []db.Session
	for _, sess := range s.sessions {
		if sess.RespondentId == respondentId {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *Store) CloseSession(ctx context.Context, sessionId uuid.UUID) error {
	defer s.lock(ctx)()

	for i := range s.sessions {
		if s.sessions[i].Id == sessionId && s.sessions[i].Status == db.SessionOpen {
			closedAt := s.now()
			s.sessions[i].Status = db.SessionClosed
			s.sessions[i].ClosedAt = &closedAt
			return nil
		}
	}
	return fmt.Errorf("open session %s: %w", sessionId, db.ErrNotFound)
}

func (s *Store) InsertAnswer(ctx context.Context, answer db.Answer) error {
	defer s.lock(ctx)()

	answer.CreatedAt = s.now()
	s.answers = append(s.answers, answer)
	return nil
}

func (s *Store) ListAnsweredQuestions(ctx context.Context, sessionId uuid.UUID) ([]string, error) {
	defer s.lock(ctx)()

	out := []string{}
	for _, a := range s.answers {
		if a.SessionId == sessionId {
			out = append(out, a.QuestionId)
		}
	}
	return out, nil
}

func (s *Store) GetAnswerValue(ctx context.Context, sessionId uuid.UUID, questionId string) (string, bool, error) {
	defer s.lock(ctx)()

	for _, a := range s.answers {
		if a.SessionId == sessionId && a.QuestionId == questionId {
			if a.Value.Value == "" {
				return "", false, nil
			}
			return a.Value.Value, true, nil
		}
	}
	return "", false, nil
}

func (s *Store) InsertMediaEvent(ctx context.Context, event db.MediaEvent) error {
	defer s.lock(ctx)()

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	s.events = append(s.events, event)
	return nil
}

func (s *Store) CountMediaEvents(ctx context.Context, filter db.MediaFilter) (int, error) {
	defer s.lock(ctx)()

	count := 0
	for _, e := range s.events {
		if filter.Matches(e) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountByOutlet(ctx context.Context, filter db.MediaFilter, limit int) ([]db.OutletCount, error) {
	defer s.lock(ctx)()

	grouped := make(map[string]int)
	for _, e := range s.events {
		if filter.Matches(e) {
			grouped[e.OutletName]++
		}
	}

	rows := make([]db.OutletCount, 0, len(grouped))
	for item, responses := range grouped {
		rows = append(rows, db.OutletCount{Item: item, Responses: responses})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Responses != rows[j].Responses {
			return rows[i].Responses > rows[j].Responses
		}
		return rows[i].Item < rows[j].Item
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) ListMediaEvents(ctx context.Context) ([]db.MediaEvent, error) {
	defer s.lock(ctx)()

	return append([]db.MediaEvent(nil), s.events...), nil
}

func (s *Store) ListCountries(ctx context.Context) ([]db.Country, error) {
	defer s.lock(ctx)()

	return append([]db.Country(nil), s.countries...), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx runs fn while holding the transaction lock, so other callers wait
// until it finishes. State captured before fn is restored when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, _ := ctx.Value(txKey{}).(*Store); tx == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Close() {}

type snapshot struct {
	respondents map[uuid.UUID]db.Respondent
	byHash      map[string]uuid.UUID
	optOuts     []db.OptOut
	sessions    []db.Session
	answers     []db.Answer
	events      []db.MediaEvent
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		respondents: make(map[uuid.UUID]db.Respondent, len(s.respondents)),
		byHash:      make(map[string]uuid.UUID, len(s.byHash)),
		optOuts:     append([]db.OptOut(nil), s.optOuts...),
		sessions:    append([]db.Session(nil), s.sessions...),
		answers:     append([]db.Answer(nil), s.answers...),
		events:      append([]db.MediaEvent(nil), s.events...),
	}
	for k, v := range s.respondents {
		snap.respondents[k] = v
	}
	for k, v := range s.byHash {
		snap.byHash[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.respondents = snap.respondents
	s.byHash = snap.byHash
	s.optOuts = snap.optOuts
	s.sessions = snap.sessions
	s.answers = snap.answers
	s.events = snap.events
}
