// internal/tags/tags.go
// Package tags extracts and validates the XML-like tagged fields that the
// models are instructed to emit, e.g. <winner>P1</winner>.
package tags

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mwiater/adjudicator/internal/logging"
)

// MissingFieldError reports a required tagged field that is absent from a response.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("analysis failed: could not identify %s in the debate", e.Field)
}

var (
	patternMu sync.RWMutex
	patterns  = map[string]*regexp.Regexp{}
	regions   = map[string]*regexp.Regexp{}
)

// cached returns the regexp stored under field in cache, compiling expr on first use.
func cached(cache map[string]*regexp.Regexp, field, expr string) *regexp.Regexp {
	patternMu.RLock()
	re, ok := cache[field]
	patternMu.RUnlock()
	if ok {
		return re
	}
	re = regexp.MustCompile(expr)
	patternMu.Lock()
	cache[field] = re
	patternMu.Unlock()
	return re
}

// pattern returns the compiled leftmost, non-greedy matcher for field.
// Interior whitespace is captured outside the group so callers receive the trimmed body.
func pattern(field string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(field)
	return cached(patterns, field, `(?s)<`+quoted+`>\s*(.*?)\s*</`+quoted+`>`)
}

// region matches a whole <field>...</field> region, tags included.
func region(field string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(field)
	return cached(regions, field, `(?s)<`+quoted+`>.*?</`+quoted+`>`)
}

// Lookup returns the trimmed interior of the first <field>...</field> region.
// The boolean distinguishes an empty region from an absent one.
func Lookup(field, text string) (string, bool) {
	m := pattern(field).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Extract returns the first tagged value of field. When the field is absent
// and required, the offending text is logged and a *MissingFieldError is
// returned; when it is optional, Extract returns "" and a nil error.
func Extract(field, text string, required bool) (string, error) {
	if v, ok := Lookup(field, text); ok {
		return v, nil
	}
	if required {
		logging.LogError("failed to find required tag %s in response:\n%s", field, text)
		return "", &MissingFieldError{Field: field}
	}
	return "", nil
}

// ExtractAll returns the trimmed interior of every non-overlapping region of field, in order.
func ExtractAll(field, text string) []string {
	matches := pattern(field).FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// Replace substitutes every <field>...</field> region, tags included, with placeholder.
func Replace(field, text, placeholder string) string {
	return region(field).ReplaceAllLiteralString(text, placeholder)
}

// ValidationOutcome is the result of checking a response for its expected fields.
type ValidationOutcome struct {
	Valid   bool
	Missing []string
}

// Validate reports which expected fields are missing from text. A field
// counts as present when both its opening and closing tags occur anywhere in
// the text; order and nesting are not checked. Missing preserves the order of
// expected.
func Validate(text string, expected []string) ValidationOutcome {
	var missing []string
	for _, field := range expected {
		if !strings.Contains(text, "<"+field+">") || !strings.Contains(text, "</"+field+">") {
			missing = append(missing, field)
		}
	}
	return ValidationOutcome{Valid: len(missing) == 0, Missing: missing}
}
