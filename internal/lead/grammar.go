// Package lead decides whether an assistant reply is a completed application
// ("lead"), extracts its fields and renders it for the working chat.
//
// All literals the assistant is instructed to produce live in a Grammar, so the
// wire format can change without touching detection or formatting.
package lead

// Field keys used by the default grammar.
const (
	KeyHeader   = "header"
	KeyName     = "name"
	KeyPhone    = "phone"
	KeyEmail    = "email"
	KeyTelegram = "telegram"
	KeyRequest  = "request"
)

// Field is one "Label: value" line of a lead block.
type Field struct {
	Key   string
	Label string
	Icon  string
}

// Grammar describes the textual lead format and the heuristics applied to it.
type Grammar struct {
	// Header is the literal banner that opens a lead block.
	Header string
	// Fields are extracted by Parse and rendered by FormatForDelivery, in order.
	Fields []Field
	// CandidateFields are the keys counted by the header-pattern half of
	// IsLeadCandidate; at least MinCandidateFields of them must match.
	CandidateFields    []string
	MinCandidateFields int
	// FinalLabels must all be present, verbatim, for IsFinalApplication.
	FinalLabels []string
	// Keywords feed the loose half of IsLeadCandidate.
	Keywords    []string
	MinKeywords int
	// MinParsedEntries is how many entries (header included) Parse needs.
	MinParsedEntries int
	Placeholder      string

	MinLength      int
	ContactPattern string
	RequestPattern string
}

// DefaultGrammar returns the format the Synaplink assistant is prompted with.
func DefaultGrammar() Grammar {
	return Grammar{
		Header: "[Заявка в рабочий чат]",
		Fields: []Field{
			{Key: KeyName, Label: "Имя:", Icon: "👤"},
			{Key: KeyPhone, Label: "Телефон:", Icon: "📱"},
			{Key: KeyEmail, Label: "Email:", Icon: "📧"},
			{Key: KeyTelegram, Label: "Телеграм:", Icon: "✈️"},
			{Key: KeyRequest, Label: "Запрос:", Icon: "💬"},
		},
		CandidateFields:    []string{KeyName, KeyPhone, KeyEmail, KeyRequest},
		MinCandidateFields: 3,
		FinalLabels:        []string{"Имя:", "Телефон:", "Телеграм:", "Запрос:"},
		Keywords: []string{
			"заявка",
			"заказ",
			"консультация",
			"сотрудничество",
			"услуга",
			"проект",
		},
		MinKeywords:      2,
		MinParsedEntries: 4,
		Placeholder:      "Не указано",
		MinLength:        50,
		ContactPattern:   `@|телефон|phone|\+7|\d{10,}`,
		RequestPattern:   `запрос|вопрос|интерес|нужно|хочу|request|question|interest|need|want`,
	}
}

func (g Grammar) field(key string) (Field, bool) {
	for _, f := range g.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
