package extract

import "strings"

// DefaultBoilerplate lists notices and watermarks stamped on every page of
// the supported exam booklets.
var DefaultBoilerplate = []string{
	"Confidencial até o momento da aplicação",
	"UVSP2404",
	"Rascunho",
}

// Sanitizer removes known boilerplate substrings from document text.
type Sanitizer struct {
	patterns []string
}

// NewSanitizer returns a Sanitizer for the given patterns. Empty patterns are ignored.
func NewSanitizer(patterns []string) *Sanitizer {
	s := &Sanitizer{}
	for _, p := range patterns {
		if p != "" {
			s.patterns = append(s.patterns, p)
		}
	}
	return s
}

// Clean removes every exact, case-sensitive occurrence of each pattern.
func (s *Sanitizer) Clean(text string) string {
	for _, p := range s.patterns {
		text = strings.ReplaceAll(text, p, "")
	}
	return text
}
