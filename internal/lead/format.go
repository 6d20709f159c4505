package lead

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
)

const timeLayout = "02.01.2006 15:04:05"

var structuredTmpl = template.Must(template.New("structured").Parse(
	`🚨 НОВАЯ ЗАЯВКА ОТ ПОЛЬЗОВАТЕЛЯ {{.UserID}}

📋 {{.Header}}

{{range .Lines}}{{.Icon}} {{.Label}} {{.Value}}
{{end}}
🆔 ID пользователя: {{.UserID}}
⏰ Время: {{.Time}}`))

var rawTmpl = template.Must(template.New("raw").Parse(
	`🚨 НОВАЯ ЗАЯВКА ОТ ПОЛЬЗОВАТЕЛЯ {{.UserID}}

📋 Содержание заявки:
{{.Raw}}

🆔 ID пользователя: {{.UserID}}
⏰ Время: {{.Time}}`))

type line struct {
	Icon  string
	Label string
	Value string
}

type view struct {
	UserID string
	Header string
	Lines  []line
	Raw    string
	Time   string
}

// FormatForDelivery renders text for the working chat. Parsed leads use the
// structured template; anything else is embedded verbatim. It never fails:
// rendering problems degrade to a plain three-part message.
func (d *Detector) FormatForDelivery(text string, userID int64) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = plainFallback(text, userID)
		}
	}()

	rendered, err := d.render(text, userID)
	if err != nil {
		return plainFallback(text, userID)
	}
	return rendered
}

func (d *Detector) render(text string, userID int64) (string, error) {
	v := view{
		UserID: strconv.FormatInt(userID, 10),
		Raw:    text,
		Time:   d.now().Format(timeLayout),
	}

	tmpl := rawTmpl
	if fields, ok := d.Parse(text); ok {
		tmpl = structuredTmpl
		v.Header = fields[KeyHeader]
		if v.Header == "" {
			v.Header = d.grammar.Header
		}
		for _, f := range d.grammar.Fields {
			value, ok := fields[f.Key]
			if !ok || value == "" {
				value = d.grammar.Placeholder
			}
			v.Lines = append(v.Lines, line{Icon: f.Icon, Label: f.Label, Value: value})
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render lead: %w", err)
	}
	return buf.String(), nil
}

func plainFallback(text string, userID int64) string {
	return fmt.Sprintf("🚨 НОВАЯ ЗАЯВКА ОТ ПОЛЬЗОВАТЕЛЯ %d\n\n📋 Содержание:\n%s\n\n🆔 ID пользователя: %d", userID, text, userID)
}
