package lead

import (
	"strings"
	"unicode/utf8"
)

// Validation outcomes returned by Validate.
const (
	ReasonValid          = "valid"
	ReasonEmpty          = "empty"
	ReasonTooShort       = "too short"
	ReasonMissingContact = "missing contact info"
	ReasonMissingRequest = "missing request"
)

// Validate is a quality gate independent of detection. Checks run in order and
// the first failure is reported.
func (d *Detector) Validate(text string) (bool, string) {
	if text == "" {
		return false, ReasonEmpty
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < d.grammar.MinLength {
		return false, ReasonTooShort
	}

	lower := strings.ToLower(text)
	if !d.contact.MatchString(lower) {
		return false, ReasonMissingContact
	}
	if !d.request.MatchString(lower) {
		return false, ReasonMissingRequest
	}
	return true, ReasonValid
}
