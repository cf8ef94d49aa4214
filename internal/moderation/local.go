// Package moderation screens argument text before it is posted: a local
// banned-term check as a fast path, then an authoritative remote check.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity grades a local result. Only Result.Clean is binding.
type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

// Result is the outcome of a local check.
type Result struct {
	Clean      bool
	Banned     []string
	Contextual []string
	Severity   Severity
	Suggestion string
}

type term struct {
	word string
	re   *regexp.Regexp
}

func compile(words []string) []term {
	terms := make([]term, len(words))
	for i, w := range words {
		terms[i] = term{word: w, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)}
	}
	return terms
}

var (
	banned     = compile(bannedTerms)
	contextual = compile(contextualTerms)
)

// Checker matches text against the fixed term lists on word boundaries,
// case-insensitively. In strict mode contextual terms also fail the check.
type Checker struct {
	strict bool
}

// NewChecker returns a local checker.
func NewChecker(strict bool) *Checker {
	return &Checker{strict: strict}
}

// Check grades text.
func (c *Checker) Check(text string) Result {
	var r Result
	for _, t := range banned {
		if t.re.MatchString(text) {
			r.Banned = append(r.Banned, t.word)
		}
	}
	if c.strict {
		for _, t := range contextual {
			if t.re.MatchString(text) {
				r.Contextual = append(r.Contextual, t.word)
			}
		}
	}

	switch {
	case len(r.Banned) > 2:
		r.Severity = High
	case len(r.Banned) > 0, len(r.Contextual) > 1:
		r.Severity = Medium
	default:
		r.Severity = Low
	}

	r.Clean = len(r.Banned) == 0 && len(r.Contextual) == 0
	switch {
	case len(r.Banned) > 0:
		r.Suggestion = "Please remove inappropriate language and focus on constructive debate."
	case len(r.Contextual) > 0:
		r.Suggestion = "Consider rephrasing to maintain a respectful discussion."
	}
	return r
}

// Message is the notice shown to the author of rejected text.
func (r Result) Message() string {
	if r.Clean {
		return ""
	}
	var msg string
	switch {
	case len(r.Banned) > 0 && r.Severity == High:
		msg = "Your message contains multiple inappropriate words that violate our community guidelines."
	case len(r.Banned) > 0:
		msg = fmt.Sprintf(`Your message contains inappropriate language: "%s"`, strings.Join(r.Banned, `", "`))
	default:
		msg = fmt.Sprintf(`Your message may contain potentially sensitive content: "%s"`, strings.Join(r.Contextual, `", "`))
	}
	if r.Suggestion != "" {
		msg += " " + r.Suggestion
	}
	return msg
}

// Sanitize masks every banned term with asterisks.
func Sanitize(text string) string {
	for _, t := range banned {
		text = t.re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat("*", len(m))
		})
	}
	return text
}
