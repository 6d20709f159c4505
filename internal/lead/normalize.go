package lead

import "strings"

// Normalize trims every line of text and drops blank lines. Labels and the
// header are left verbatim, so a normalized lead still parses.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
