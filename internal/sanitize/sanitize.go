package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

const filtered = "[filtered]"

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// Sanitizer scrubs user text before it reaches the classifier or the rules.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// New compiles the injection filter patterns.
func New(patterns []string) (*Sanitizer, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile injection pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Sanitizer{patterns: compiled}, nil
}

// Clean replaces prompt-injection phrases with a marker, turns control
// characters into spaces and trims the result.
func (s *Sanitizer) Clean(text string) string {
	out := text
	for _, re := range s.patterns {
		out = re.ReplaceAllString(out, filtered)
	}
	out = controlChars.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
