package lead

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const phoneRegion = "RU"

// Fields maps grammar keys to trimmed values. Grammar.Fields gives the order.
type Fields map[string]string

// Record is a lead extracted from an assistant reply.
type Record struct {
	Fields Fields
	Raw    string
	UserID int64
}

// Parse extracts the header and labelled fields from text. Each pattern is
// searched once across the whole text; the first match wins. It returns false
// when fewer than Grammar.MinParsedEntries entries were found.
func (d *Detector) Parse(text string) (Fields, bool) {
	fields := make(Fields, len(d.grammar.Fields)+1)

	if loc := d.header.FindString(text); loc != "" {
		fields[KeyHeader] = loc
	}
	for _, f := range d.grammar.Fields {
		m := d.fields[f.Key].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		fields[f.Key] = strings.TrimSpace(m[1])
	}

	if len(fields) < d.grammar.MinParsedEntries {
		return nil, false
	}
	return fields, true
}

// Extract builds a Record from text that passes IsLeadCandidate. Fields is nil
// when the text carries no structured block.
func (d *Detector) Extract(text string, userID int64) (Record, bool) {
	if !d.IsLeadCandidate(text) {
		return Record{}, false
	}
	fields, _ := d.Parse(text)
	return Record{Fields: fields, Raw: text, UserID: userID}, true
}

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string {
	return r.Fields[key]
}

// PhoneE164 returns the phone field in E.164 form, or the raw value when it
// cannot be parsed as a valid number.
func (r Record) PhoneE164() string {
	raw := strings.TrimSpace(r.Get(KeyPhone))
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
