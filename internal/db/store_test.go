package db_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tomashoffer/afripulse/internal/db"
	"github.com/tomashoffer/afripulse/internal/tools"
)

type testContext struct {
	connPool *pgxpool.Pool
	store    *db.PgStore
}

func setupTest(ctx SpecContext) *testContext {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		Skip("TEST_DATABASE_URL not set")
	}

	var err error
	tc := &testContext{}

	tc.connPool, err = pgxpool.New(ctx, url)
	Expect(err).NotTo(HaveOccurred())

	// Start from an empty, seeded schema
	Expect(tools.ResetDB(ctx, tc.connPool)).To(Succeed())

	tc.store = db.NewPgStore(tc.connPool)
	return tc
}

func (tc *testContext) cleanup() {
	if tc != nil && tc.connPool != nil {
		tc.connPool.Close()
	}
}

func (tc *testContext) respondent(ctx context.Context, phoneHash string) db.Respondent {
	r, err := tc.store.UpsertRespondent(ctx, phoneHash, "NG", "en")
	Expect(err).NotTo(HaveOccurred())
	return r
}

var _ = Describe("PostgreSQL Store", func() {
	var tc *testContext

	BeforeEach(func(ctx SpecContext) {
		tc = setupTest(ctx)
	})

	AfterEach(func() {
		tc.cleanup()
	})

	It("should answer pings and list the seeded countries", func(ctx SpecContext) {
		Expect(tc.store.Ping(ctx)).To(Succeed())

		countries, err := tc.store.ListCountries(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(countries).To(Equal(db.Countries()))
	})

	It("should upsert respondents by phone hash", func(ctx SpecContext) {
		first := tc.respondent(ctx, "hash-1")

		second, err := tc.store.UpsertRespondent(ctx, "hash-1", "ZA", "fr")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Id).To(Equal(first.Id))
		Expect(second.CountryISO2).To(Equal("NG"))
		Expect(second.LastActiveAt).To(BeTemporally(">=", first.LastActiveAt))

		fetched, err := tc.store.GetRespondent(ctx, first.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(fetched.PhoneHash).To(Equal("hash-1"))

		_, err = tc.store.GetRespondent(ctx, uuid.New())
		Expect(errors.Is(err, db.ErrNotFound)).To(BeTrue())
	})

	It("should keep one opt-out per phone hash", func(ctx SpecContext) {
		Expect(tc.store.InsertOptOut(ctx, "hash-1", "user_request")).To(Succeed())
		Expect(tc.store.InsertOptOut(ctx, "hash-1", "user_request")).To(Succeed())

		optOuts, err := tc.store.ListOptOuts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(optOuts).To(HaveLen(1))
	})

	It("should reuse the open session and record answers in order", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")

		session, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Status).To(Equal(db.SessionOpen))
		Expect(session.ClosedAt).To(BeNil())

		again, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Id).To(Equal(session.Id))

		Expect(tc.store.InsertAnswer(ctx, db.Answer{SessionId: session.Id, QuestionId: db.QuestionMediaCategory, Value: db.AnswerValue{Value: "TV"}})).To(Succeed())
		Expect(tc.store.InsertAnswer(ctx, db.Answer{SessionId: session.Id, QuestionId: db.QuestionMediaOutlet, Value: db.AnswerValue{Value: "NTA"}})).To(Succeed())

		answered, err := tc.store.ListAnsweredQuestions(ctx, session.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(answered).To(Equal([]string{db.QuestionMediaCategory, db.QuestionMediaOutlet}))

		value, found, err := tc.store.GetAnswerValue(ctx, session.Id, db.QuestionMediaCategory)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(value).To(Equal("TV"))

		_, found, err = tc.store.GetAnswerValue(ctx, session.Id, "Q_UNKNOWN")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		Expect(tc.store.CloseSession(ctx, session.Id)).To(Succeed())
		next, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Id).NotTo(Equal(session.Id))

		sessions, err := tc.store.ListSessions(ctx, r.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(2))
		Expect(sessions[0].Status).To(Equal(db.SessionClosed))
		Expect(sessions[0].ClosedAt).NotTo(BeNil())

		Expect(errors.Is(tc.store.CloseSession(ctx, uuid.New()), db.ErrNotFound)).To(BeTrue())
		Expect(errors.Is(tc.store.CloseSession(ctx, session.Id), db.ErrNotFound)).To(BeTrue())
	})

	It("should treat an answer without a value as missing", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")
		session, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())

		_, err = tc.connPool.Exec(ctx, `
			INSERT INTO survey_answers (session_id, question_id, answer) VALUES ($1, $2, '{"other": 1}'::jsonb)`,
			session.Id, db.QuestionMediaCategory)
		Expect(err).NotTo(HaveOccurred())

		_, found, err := tc.store.GetAnswerValue(ctx, session.Id, db.QuestionMediaCategory)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("should treat an empty answer value as missing", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")
		session, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())

		Expect(tc.store.InsertAnswer(ctx, db.Answer{SessionId: session.Id, QuestionId: db.QuestionMediaCategory, Value: db.AnswerValue{Value: ""}})).To(Succeed())

		_, found, err := tc.store.GetAnswerValue(ctx, session.Id, db.QuestionMediaCategory)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("should hand concurrent callers the same open session", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")

		var wg sync.WaitGroup
		ids := make([]uuid.UUID, 10)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				s, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
				Expect(err).NotTo(HaveOccurred())
				ids[i] = s.Id
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			Expect(id).To(Equal(ids[0]))
		}
		sessions, err := tc.store.ListSessions(ctx, r.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(1))
	})

	It("should count media events by outlet within the window", func(ctx SpecContext) {
		now := time.Now().UTC()
		insert := func(country, category, outlet string, age time.Duration) {
			Expect(tc.store.InsertMediaEvent(ctx, db.MediaEvent{
				Id:           uuid.New(),
				RespondentId: uuid.New(),
				CountryISO2:  country,
				Category:     category,
				OutletName:   outlet,
				CreatedAt:    now.Add(-age),
			})).To(Succeed())
		}
		insert("NG", "TV", "NTA", time.Hour)
		insert("NG", "TV", "Channels TV", time.Hour)
		insert("NG", "TV", "Channels TV", 2*time.Hour)
		insert("NG", "RADIO", "Cool FM", time.Hour)
		insert("NG", "TV", "AIT", 8*24*time.Hour)
		insert("ZA", "TV", "SABC", time.Hour)

		filter := db.MediaFilter{CountryISO2: "NG", Category: "TV", Since: now.Add(-7 * 24 * time.Hour)}
		count, err := tc.store.CountMediaEvents(ctx, filter)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))

		rows, err := tc.store.CountByOutlet(ctx, filter, 200)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([]db.OutletCount{{Item: "Channels TV", Responses: 2}, {Item: "NTA", Responses: 1}}))

		filter.Category = db.CategoryAll
		count, err = tc.store.CountMediaEvents(ctx, filter)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(4))

		rows, err = tc.store.CountByOutlet(ctx, filter, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
	})

	It("should default the event timestamp", func(ctx SpecContext) {
		Expect(tc.store.InsertMediaEvent(ctx, db.MediaEvent{
			Id:           uuid.New(),
			RespondentId: uuid.New(),
			CountryISO2:  "NG",
			Category:     "TV",
			OutletName:   "NTA",
		})).To(Succeed())

		events, err := tc.store.ListMediaEvents(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
	})

	It("should roll back every write of a failed transaction", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")
		session, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())

		boom := errors.New("abort")
		err = tc.store.WithTx(ctx, func(ctx context.Context) error {
			Expect(tc.store.InsertAnswer(ctx, db.Answer{SessionId: session.Id, QuestionId: db.QuestionMediaOutlet, Value: db.AnswerValue{Value: "NTA"}})).To(Succeed())
			Expect(tc.store.InsertMediaEvent(ctx, db.MediaEvent{Id: uuid.New(), RespondentId: r.Id, CountryISO2: "NG", Category: "TV", OutletName: "NTA"})).To(Succeed())
			Expect(tc.store.CloseSession(ctx, session.Id)).To(Succeed())
			return boom
		})
		Expect(errors.Is(err, boom)).To(BeTrue())

		answered, err := tc.store.ListAnsweredQuestions(ctx, session.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(answered).To(BeEmpty())

		events, err := tc.store.ListMediaEvents(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())

		sessions, err := tc.store.ListSessions(ctx, r.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions[0].Status).To(Equal(db.SessionOpen))
	})

	It("should commit a successful transaction", func(ctx SpecContext) {
		r := tc.respondent(ctx, "hash-1")
		session, err := tc.store.AcquireOpenSession(ctx, r.Id, db.ModuleMediaDaily)
		Expect(err).NotTo(HaveOccurred())

		Expect(tc.store.WithTx(ctx, func(ctx context.Context) error {
			return tc.store.CloseSession(ctx, session.Id)
		})).To(Succeed())

		sessions, err := tc.store.ListSessions(ctx, r.Id)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions[0].Status).To(Equal(db.SessionClosed))
	})
})
