// Package extract pulls structured fields out of raw message text using
// pattern rules. It is a best-effort syntactic extractor: every field is
// independently optional and no-match is a normal outcome, never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields holds the structured fields extracted from a message.
// Absent fields are left at their zero value.
type Fields struct {
	DealName       string   `json:"dealName,omitempty"`
	Amount         *float64 `json:"amount,omitempty"`
	ExpirationDate string   `json:"expirationDate,omitempty"` // ISO yyyy-mm-dd
}

// Empty reports whether no field was extracted.
func (f Fields) Empty() bool {
	return f.DealName == "" && f.Amount == nil && f.ExpirationDate == ""
}

var (
	// Deal name follows a label token, up to end of line or punctuation.
	dealRe = regexp.MustCompile(`(?i)\b(?:Deal|Re):[ \t]*([A-Za-z0-9][A-Za-z0-9 \-]*)`)

	// Currency amounts: "$1,234,567.89" or "1234567.89 USD".
	amountRe = regexp.MustCompile(`\$[ \t]*[\d,]+(?:\.\d+)?|\b[\d,]+(?:\.\d+)?[ \t]*(?:USD|EUR|GBP)\b`)

	amountStripRe = regexp.MustCompile(`[$,\s]|USD|EUR|GBP`)

	// Date tokens: ISO, slash-separated, or month-name forms.
	dateRe = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2})\b|\b(\d{1,2})/(\d{1,2})/(\d{4})\b|\b(January|February|March|April|May|June|July|August|September|October|November|December)[ \t]+(\d{1,2}),?[ \t]+(\d{4})\b`)
)

// Extract applies the pattern rules to the text. Multiple matches for a
// field resolve first-match-wins. Malformed input degrades to partial
// results rather than failing.
func Extract(text string) Fields {
	var f Fields

	if m := dealRe.FindStringSubmatch(text); m != nil {
		f.DealName = strings.TrimSpace(m[1])
	}

	if m := amountRe.FindString(text); m != "" {
		raw := amountStripRe.ReplaceAllString(m, "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Amount = &v
		}
	}

	if m := dateRe.FindStringSubmatch(text); m != nil {
		if d, ok := parseDate(m); ok {
			f.ExpirationDate = d
		}
	}

	return f
}

// parseDate resolves a dateRe match into an ISO date. Ambiguous or
// unparseable tokens are dropped rather than guessed: "a/b/yyyy" with both
// parts in 1..12 (and differing) could be read day-first or month-first,
// so it stays unset.
func parseDate(m []string) (string, bool) {
	switch {
	case m[1] != "": // ISO
		t, err := time.Parse(time.DateOnly, m[1])
		if err != nil {
			return "", false
		}
		return t.Format(time.DateOnly), true

	case m[2] != "": // slash form
		a, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		year, _ := strconv.Atoi(m[4])

		var mo, day int
		switch {
		case a >= 1 && a <= 12 && b >= 1 && b <= 12 && a != b:
			return "", false // day/month order ambiguous
		case a >= 1 && a <= 12:
			mo, day = a, b
		case b >= 1 && b <= 12:
			mo, day = b, a
		default:
			return "", false
		}
		return civilDate(year, mo, day)

	default: // month-name form
		mo := monthIndex(m[5])
		day, _ := strconv.Atoi(m[6])
		year, _ := strconv.Atoi(m[7])
		return civilDate(year, mo, day)
	}
}

// civilDate validates day-of-month via round-trip through time.Date.
func civilDate(year, month, day int) (string, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

func monthIndex(name string) int {
	t, err := time.Parse("January", strings.Title(strings.ToLower(name))) //nolint:staticcheck // month names are ASCII
	if err != nil {
		return 0
	}
	return int(t.Month())
}
