// Package intent maps free text to a coarse intent by literal keyword
// matching. There is no language understanding here on purpose.
package intent

import "strings"

// Intent is the outcome of classifying an idle-state message.
type Intent int

const (
	Unrecognized Intent = iota
	StatusQuery
	HelpQuery
)

func (i Intent) String() string {
	switch i {
	case StatusQuery:
		return "status"
	case HelpQuery:
		return "help"
	default:
		return "unrecognized"
	}
}

// Classify lower-cases text and checks status keywords before help
// keywords, so "help with my status" is a StatusQuery.
func Classify(text string) Intent {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "status"),
		strings.Contains(t, "complaint") && strings.Contains(t, "id"):
		return StatusQuery
	case strings.Contains(t, "help") || strings.Contains(t, "menu"):
		return HelpQuery
	default:
		return Unrecognized
	}
}

// Answer is the reading of a reply to a resolution check.
type Answer int

const (
	Ambiguous Answer = iota
	Affirmative
	Negative
)

func (a Answer) String() string {
	switch a {
	case Affirmative:
		return "affirmative"
	case Negative:
		return "negative"
	default:
		return "ambiguous"
	}
}

var (
	affirmativeWords = []string{"yes", "resolved", "fixed", "solved"}
	negativeWords    = []string{"no", "not", "still", "problem"}
)

// ClassifyAnswer reads a yes/no reply by substring containment.
//
// Affirmative keywords are checked first, so "not resolved" counts as
// affirmative. Substrings match inside words too ("know" contains "no").
func ClassifyAnswer(text string) Answer {
	t := strings.ToLower(text)
	if containsAny(t, affirmativeWords) {
		return Affirmative
	}
	if containsAny(t, negativeWords) {
		return Negative
	}
	return Ambiguous
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
