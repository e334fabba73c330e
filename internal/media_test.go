package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tomashoffer/afripulse/internal/db"
	"github.com/tomashoffer/afripulse/internal/memstore"
	"github.com/tomashoffer/afripulse/internal/mocks"
)

var _ = Describe("Media Service", func() {
	var (
		ctx     context.Context
		store   *memstore.Store
		service *MediaService
		now     time.Time
	)

	insert := func(country, category, outlet string, age time.Duration) {
		Expect(store.InsertMediaEvent(ctx, db.MediaEvent{
			Id:           uuid.New(),
			RespondentId: uuid.New(),
			CountryISO2:  country,
			Category:     category,
			OutletName:   outlet,
			CreatedAt:    now.Add(-age),
		})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		store = memstore.New()
		service = NewMediaService(store).WithClock(func() time.Time { return now })
	})

	It("should group a category's events by outlet with shares", func() {
		insert("NG", "TV", "Channels TV", time.Hour)
		insert("NG", "TV", "Channels TV", 2*24*time.Hour)
		insert("NG", "TV", "NTA", 3*time.Hour)
		insert("NG", "RADIO", "Cool FM", time.Hour)
		insert("ZA", "TV", "SABC", time.Hour)

		shares, err := service.Shares(ctx, "NG", "TV")
		Expect(err).NotTo(HaveOccurred())
		Expect(shares.Country).To(Equal("NG"))
		Expect(shares.Category).To(Equal("TV"))
		Expect(shares.Total).To(Equal(3))
		Expect(shares.Rows).To(HaveLen(2))
		Expect(shares.Rows[0].Item).To(Equal("Channels TV"))
		Expect(shares.Rows[0].Responses).To(Equal(2))
		Expect(shares.Rows[0].Share).To(BeNumerically("~", 2.0/3.0, 1e-9))
		Expect(shares.Rows[1].Item).To(Equal("NTA"))
		Expect(shares.Rows[1].Share).To(BeNumerically("~", 1.0/3.0, 1e-9))
	})

	It("should include every category for ALL and an empty category", func() {
		insert("NG", "TV", "Channels TV", time.Hour)
		insert("NG", "RADIO", "Cool FM", time.Hour)

		for _, category := range []string{"ALL", "all", ""} {
			shares, err := service.Shares(ctx, "ng", category)
			Expect(err).NotTo(HaveOccurred())
			Expect(shares.Country).To(Equal("NG"))
			Expect(shares.Category).To(Equal("ALL"))
			Expect(shares.Total).To(Equal(2))
		}
	})

	It("should ignore events older than seven days", func() {
		insert("NG", "TV", "Channels TV", 7*24*time.Hour+time.Minute)
		insert("NG", "TV", "NTA", 6*24*time.Hour)

		shares, err := service.Shares(ctx, "NG", "TV")
		Expect(err).NotTo(HaveOccurred())
		Expect(shares.Total).To(Equal(1))
		Expect(shares.Rows).To(HaveLen(1))
		Expect(shares.Rows[0].Item).To(Equal("NTA"))
	})

	It("should report zero shares and an empty row list when nothing matches", func() {
		shares, err := service.Shares(ctx, "KE", "TV")
		Expect(err).NotTo(HaveOccurred())
		Expect(shares.Total).To(BeZero())
		Expect(shares.Rows).NotTo(BeNil())
		Expect(shares.Rows).To(BeEmpty())
	})

	It("should cap the result at 200 outlets", func() {
		for i := 0; i < MaxShareRows+50; i++ {
			insert("NG", "ONLINE", fmt.Sprintf("site-%03d", i), time.Hour)
		}
		insert("NG", "ONLINE", "site-249", time.Hour)

		shares, err := service.Shares(ctx, "NG", "ONLINE")
		Expect(err).NotTo(HaveOccurred())
		Expect(shares.Total).To(Equal(MaxShareRows + 51))
		Expect(shares.Rows).To(HaveLen(MaxShareRows))
		Expect(shares.Rows[0].Item).To(Equal("site-249"))
		Expect(shares.Rows[0].Responses).To(Equal(2))
	})

	It("should keep responses summing to the total and shares summing to one", func() {
		service = NewMediaService(store)
		for i := 0; i < 100; i++ {
			Expect(store.InsertMediaEvent(ctx, db.GenerateRandomMediaEvent())).To(Succeed())
		}

		shares, err := service.Shares(ctx, "NG", "ALL")
		Expect(err).NotTo(HaveOccurred())
		Expect(shares.Total).To(Equal(100))

		responses, share := 0, 0.0
		for _, row := range shares.Rows {
			responses += row.Responses
			share += row.Share
		}
		Expect(responses).To(Equal(shares.Total))
		Expect(share).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("should return store failures", func() {
		boom := errors.New("timeout")
		service = NewMediaService(mocks.NewFailingStore(store, boom, "CountMediaEvents"))

		_, err := service.Shares(ctx, "NG", "TV")
		Expect(errors.Is(err, boom)).To(BeTrue())
	})
})
