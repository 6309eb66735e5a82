package textmatch

import (
	"regexp"
	"strings"
)

// WordMatcher matches any of a list of terms on word boundaries, ignoring case.
type WordMatcher struct {
	re *regexp.Regexp
}

// NewWordMatcher quotes terms literally. An empty list never matches.
func NewWordMatcher(terms []string) *WordMatcher {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(term))
	}
	if len(quoted) == 0 {
		return &WordMatcher{}
	}
	return &WordMatcher{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// Match reports whether text contains a term as a whole word.
func (m *WordMatcher) Match(text string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(text)
}

// ContainsAny reports whether lowercased text contains any phrase as a substring.
func ContainsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// EqualsAny reports whether trimmed, lowercased text is exactly one of options.
func EqualsAny(text string, options []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, o := range options {
		if normalized == strings.ToLower(o) {
			return true
		}
	}
	return false
}
