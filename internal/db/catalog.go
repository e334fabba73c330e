package db

import "strings"

const (
	ModuleMediaDaily = "MEDIA_DAILY"
	ModuleCorpWeekly = "CORP_WEEKLY"

	QuestionMediaCategory = "Q_MEDIA_CAT"
	QuestionMediaOutlet   = "Q_MEDIA_OUTLET"
	QuestionCorpOptimism  = "Q_CORP_OPT"
	QuestionCorpHiring    = "Q_CORP_HIRE"
)

type QuestionType string

const (
	QuestionSingle QuestionType = "single"
	QuestionText   QuestionType = "text"
	QuestionScale  QuestionType = "scale"
)

type Question struct {
	Id      string         `json:"id"`
	Type    QuestionType   `json:"question_type"`
	Prompt  string         `json:"prompt"`
	Choices []string       `json:"choices"`
	Meta    map[string]int `json:"meta"`
}

// Normalize converts raw inbound text into the stored answer value.
// Single-choice answers are stored uppercase, everything else verbatim.
func (q Question) Normalize(text string) string {
	if q.Type == QuestionSingle {
		return strings.ToUpper(text)
	}
	return text
}

type Module struct {
	Id        string     `json:"id"`
	Name      string     `json:"name"`
	Cadence   string     `json:"cadence"`
	Questions []Question `json:"questions"`
}

// NextQuestion returns the first question of the module that does not appear
// in answered. ok is false once every question has an answer.
func (m Module) NextQuestion(answered []string) (q Question, last bool, ok bool) {
	seen := make(map[string]bool, len(answered))
	for _, id := range answered {
		seen[id] = true
	}
	for i, q := range m.Questions {
		if !seen[q.Id] {
			return q, i == len(m.Questions)-1, true
		}
	}
	return Question{}, false, false
}

type Country struct {
	ISO2            string `db:"iso2" json:"iso2"`
	Name            string `db:"name" json:"name"`
	DefaultLanguage string `db:"default_language" json:"default_language"`
}

var modules = []Module{
	{
		Id:      ModuleMediaDaily,
		Name:    "Media daily audience",
		Cadence: "daily",
		Questions: []Question{
			{
				Id:      QuestionMediaCategory,
				Type:    QuestionSingle,
				Prompt:  "Which media category did you use MOST today?",
				Choices: []string{"TV", "RADIO", "ONLINE", "SOCIAL"},
			},
			{
				Id:     QuestionMediaOutlet,
				Type:   QuestionText,
				Prompt: "Name the outlet/channel/site/app you used most in that category",
			},
		},
	},
	{
		Id:      ModuleCorpWeekly,
		Name:    "Corporate Heartbeat weekly",
		Cadence: "weekly",
		Questions: []Question{
			{
				Id:     QuestionCorpOptimism,
				Type:   QuestionScale,
				Prompt: "How optimistic are you for the next 3 months? (1-5)",
				Meta:   map[string]int{"min": 1, "max": 5},
			},
			{
				Id:      QuestionCorpHiring,
				Type:    QuestionSingle,
				Prompt:  "In the next 3 months, will your company change headcount?",
				Choices: []string{"INCREASE", "STABLE", "DECREASE", "UNCERTAIN"},
			},
		},
	},
}

var countries = []Country{
	{ISO2: "CI", Name: "Côte d'Ivoire", DefaultLanguage: "fr"},
	{ISO2: "CM", Name: "Cameroon", DefaultLanguage: "fr"},
	{ISO2: "EG", Name: "Egypt", DefaultLanguage: "en"},
	{ISO2: "KE", Name: "Kenya", DefaultLanguage: "en"},
	{ISO2: "MA", Name: "Morocco", DefaultLanguage: "fr"},
	{ISO2: "NG", Name: "Nigeria", DefaultLanguage: "en"},
	{ISO2: "SN", Name: "Senegal", DefaultLanguage: "fr"},
	{ISO2: "ZA", Name: "South Africa", DefaultLanguage: "en"},
}

// Modules returns a copy of the static survey module catalog.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

func LookupModule(id string) (Module, bool) {
	for _, m := range modules {
		if m.Id == id {
			return m, true
		}
	}
	return Module{}, false
}

// Countries returns the supported countries ordered by ISO code.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}
