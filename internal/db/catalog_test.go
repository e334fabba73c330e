package db_test

import (
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tomashoffer/afripulse/internal/db"
)

var _ = Describe("Survey Catalog", func() {
	It("should ask the media questions in order", func() {
		module, ok := db.LookupModule(db.ModuleMediaDaily)
		Expect(ok).To(BeTrue())

		q, last, ok := module.NextQuestion(nil)
		Expect(ok).To(BeTrue())
		Expect(last).To(BeFalse())
		Expect(q.Id).To(Equal(db.QuestionMediaCategory))

		q, last, ok = module.NextQuestion([]string{db.QuestionMediaCategory})
		Expect(ok).To(BeTrue())
		Expect(last).To(BeTrue())
		Expect(q.Id).To(Equal(db.QuestionMediaOutlet))

		_, _, ok = module.NextQuestion([]string{db.QuestionMediaOutlet, db.QuestionMediaCategory})
		Expect(ok).To(BeFalse())
	})

	It("should pick the first unanswered question regardless of answer order", func() {
		module, _ := db.LookupModule(db.ModuleMediaDaily)

		q, last, ok := module.NextQuestion([]string{db.QuestionMediaOutlet})
		Expect(ok).To(BeTrue())
		Expect(last).To(BeFalse())
		Expect(q.Id).To(Equal(db.QuestionMediaCategory))
	})

	It("should uppercase single-choice answers only", func() {
		module, _ := db.LookupModule(db.ModuleMediaDaily)
		Expect(module.Questions[0].Normalize("radio")).To(Equal("RADIO"))
		Expect(module.Questions[1].Normalize("Cool FM")).To(Equal("Cool FM"))
	})

	It("should not find unknown modules", func() {
		_, ok := db.LookupModule("NOPE")
		Expect(ok).To(BeFalse())
	})

	It("should list both modules and the supported countries", func() {
		modules := db.Modules()
		Expect(modules).To(HaveLen(2))
		Expect(modules[1].Id).To(Equal(db.ModuleCorpWeekly))
		Expect(modules[1].Questions[0].Meta).To(Equal(map[string]int{"min": 1, "max": 5}))

		countries := db.Countries()
		Expect(countries).To(HaveLen(8))
		Expect(countries).To(ContainElement(db.Country{ISO2: "NG", Name: "Nigeria", DefaultLanguage: "en"}))

		countries[0].Name = "changed"
		Expect(db.Countries()[0].Name).NotTo(Equal("changed"))
	})
})

var _ = Describe("Media Filter", func() {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	event := db.MediaEvent{
		Id:          uuid.New(),
		CountryISO2: "NG",
		Category:    "TV",
		OutletName:  "NTA",
		CreatedAt:   now.Add(-time.Hour),
	}

	DescribeTable("matching events",
		func(filter db.MediaFilter, expected bool) {
			Expect(filter.Matches(event)).To(Equal(expected))
		},
		Entry("same country and category", db.MediaFilter{CountryISO2: "NG", Category: "TV", Since: now.Add(-24 * time.Hour)}, true),
		Entry("all categories", db.MediaFilter{CountryISO2: "NG", Category: db.CategoryAll, Since: now.Add(-24 * time.Hour)}, true),
		Entry("empty category", db.MediaFilter{CountryISO2: "NG", Since: now.Add(-24 * time.Hour)}, true),
		Entry("other category", db.MediaFilter{CountryISO2: "NG", Category: "RADIO", Since: now.Add(-24 * time.Hour)}, false),
		Entry("other country", db.MediaFilter{CountryISO2: "ZA", Category: "TV", Since: now.Add(-24 * time.Hour)}, false),
		Entry("window boundary", db.MediaFilter{CountryISO2: "NG", Since: now.Add(-time.Hour)}, true),
		Entry("outside the window", db.MediaFilter{CountryISO2: "NG", Since: now}, false),
	)

	It("should generate recent Nigerian events", func() {
		for i := 0; i < 50; i++ {
			e := db.GenerateRandomMediaEvent()
			Expect(e.CountryISO2).To(Equal("NG"))
			Expect(e.Category).To(BeElementOf("TV", "RADIO", "ONLINE", "SOCIAL"))
			Expect(e.OutletName).NotTo(BeEmpty())
			Expect(e.CreatedAt).To(BeTemporally(">", time.Now().Add(-7*24*time.Hour)))
		}
	})
})
