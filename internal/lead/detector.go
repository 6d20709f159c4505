package lead

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Detector applies a Grammar to free text. It is safe for concurrent use.
type Detector struct {
	grammar Grammar
	header  *regexp.Regexp
	fields  map[string]*regexp.Regexp
	contact *regexp.Regexp
	request *regexp.Regexp
	now     func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the time source used for delivery timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// New compiles g into a Detector.
func New(g Grammar, opts ...Option) (*Detector, error) {
	if g.Header == "" {
		return nil, fmt.Errorf("lead grammar: empty header")
	}

	d := &Detector{
		grammar: g,
		header:  regexp.MustCompile(regexp.QuoteMeta(g.Header)),
		fields:  make(map[string]*regexp.Regexp, len(g.Fields)),
		now:     time.Now,
	}

	for _, f := range g.Fields {
		if f.Key == "" || f.Label == "" {
			return nil, fmt.Errorf("lead grammar: field %q has no label", f.Key)
		}
		d.fields[f.Key] = regexp.MustCompile(regexp.QuoteMeta(f.Label) + `\s*(.+)`)
	}
	for _, key := range g.CandidateFields {
		if _, ok := d.fields[key]; !ok {
			return nil, fmt.Errorf("lead grammar: candidate field %q is not declared", key)
		}
	}

	var err error
	if d.contact, err = regexp.Compile(g.ContactPattern); err != nil {
		return nil, fmt.Errorf("lead grammar: contact pattern: %w", err)
	}
	if d.request, err = regexp.Compile(g.RequestPattern); err != nil {
		return nil, fmt.Errorf("lead grammar: request pattern: %w", err)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MustNew is New that panics on an invalid grammar.
func MustNew(g Grammar, opts ...Option) *Detector {
	d, err := New(g, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Grammar returns the grammar the detector was built from.
func (d *Detector) Grammar() Grammar {
	return d.grammar
}

// IsLeadCandidate reports whether text looks like a submitted lead: either the
// header with enough labelled fields, or enough domain keywords.
func (d *Detector) IsLeadCandidate(text string) bool {
	if text == "" {
		return false
	}
	return d.matchesBlock(text) || d.matchesKeywords(strings.ToLower(text))
}

// IsFinalApplication is the strict check used before notifying the working
// chat: the header and every final label must appear verbatim.
func (d *Detector) IsFinalApplication(text string) bool {
	if text == "" || !strings.Contains(text, d.grammar.Header) {
		return false
	}
	for _, label := range d.grammar.FinalLabels {
		if !strings.Contains(text, label) {
			return false
		}
	}
	return true
}

func (d *Detector) matchesBlock(text string) bool {
	if !d.header.MatchString(text) {
		return false
	}
	found := 0
	for _, key := range d.grammar.CandidateFields {
		if d.fields[key].MatchString(text) {
			found++
		}
	}
	return found >= d.grammar.MinCandidateFields
}

func (d *Detector) matchesKeywords(lower string) bool {
	hits := 0
	for _, kw := range d.grammar.Keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits >= d.grammar.MinKeywords
}
