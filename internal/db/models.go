package db

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

type Respondent struct {
	Id           uuid.UUID `db:"id"`
	PhoneHash    string    `db:"phone_hash"`
	CountryISO2  string    `db:"country_iso2"`
	Lang         string    `db:"lang"`
	CreatedAt    time.Time `db:"created_at"`
	LastActiveAt time.Time `db:"last_active_at"`
}

type Session struct {
	Id           uuid.UUID     `db:"id"`
	RespondentId uuid.UUID     `db:"respondent_id"`
	ModuleId     string        `db:"module_id"`
	Status       SessionStatus `db:"status"`
	StartedAt    time.Time     `db:"started_at"`
	ClosedAt     *time.Time    `db:"closed_at"`
}

// AnswerValue is the JSON document stored in survey_answers.answer.
type AnswerValue struct {
	Value string `json:"value"`
}

type Answer struct {
	SessionId  uuid.UUID
	QuestionId string
	Value      AnswerValue
	CreatedAt  time.Time
}

type MediaEvent struct {
	Id           uuid.UUID `db:"id"`
	RespondentId uuid.UUID `db:"respondent_id"`
	CountryISO2  string    `db:"country_iso2"`
	Category     string    `db:"category"`
	OutletName   string    `db:"outlet_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// MediaFilter selects media events for aggregation. An empty Category or
// CategoryAll matches every category.
type MediaFilter struct {
	CountryISO2 string
	Category    string
	Since       time.Time
}

const CategoryAll = "ALL"

func (f MediaFilter) MatchesCategory() bool {
	return f.Category != "" && f.Category != CategoryAll
}

func (f MediaFilter) Matches(e MediaEvent) bool {
	if e.CountryISO2 != f.CountryISO2 {
		return false
	}
	if f.MatchesCategory() && e.Category != f.Category {
		return false
	}
	return !e.CreatedAt.Before(f.Since)
}

type OutletCount struct {
	Item      string `db:"item"`
	Responses int    `db:"responses"`
}

type OptOut struct {
	PhoneHash string    `db:"phone_hash"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

var demoOutlets = map[string][]string{
	"TV":     {"Channels TV", "NTA", "AIT", "TVC"},
	"RADIO":  {"Cool FM", "Wazobia FM", "Nigeria Info"},
	"ONLINE": {"Punch", "Vanguard", "Premium Times"},
	"SOCIAL": {"Facebook", "Twitter", "Instagram", "TikTok"},
}

// GenerateRandomMediaEvent returns a Nigerian media event created at some
// point within the last six days.
func GenerateRandomMediaEvent() MediaEvent {
	categories := []string{"TV", "RADIO", "ONLINE", "SOCIAL"}
	category := categories[rand.Intn(len(categories))]
	outlets := demoOutlets[category]

	return MediaEvent{
		Id:           uuid.New(),
		RespondentId: uuid.New(),
		CountryISO2:  "NG",
		Category:     category,
		OutletName:   outlets[rand.Intn(len(outlets))],
		CreatedAt:    time.Now().UTC().Add(-time.Duration(rand.Intn(6*24)) * time.Hour),
	}
}
