// Package jpdate parses the date strings found on Japanese corporate listing pages.
package jpdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// reiwaOffset converts a Reiwa era year to a Gregorian year (Reiwa 1 = 2019).
const reiwaOffset = 2018

var (
	gregorianExpr = regexp.MustCompile(`(?:^|\D)(\d{4})年(\d{1,2})月(\d{1,2})日`)
	reiwaExpr     = regexp.MustCompile(`令和(元|\d{1,2})年(\d{1,2})月(\d{1,2})日`)
)

// DateParseError reports date text that matched no supported format.
type DateParseError struct {
	Text   string
	Reason string
}

func (e *DateParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("parse date %q: %s", e.Text, e.Reason)
	}
	return fmt.Sprintf("parse date %q: unsupported format", e.Text)
}

// Parse converts "YYYY年M月D日" or "令和N年M月D日" into UTC midnight of that day.
// Full-width digits and spaces are folded first; trailing text such as "発表" is ignored.
func Parse(text string) (time.Time, error) {
	s := Normalize(text)

	if m := reiwaExpr.FindStringSubmatch(s); m != nil {
		eraYear := 1
		if m[1] != "元" {
			eraYear, _ = strconv.Atoi(m[1])
		}
		if eraYear < 1 {
			return time.Time{}, &DateParseError{Text: text, Reason: "era year must be positive"}
		}
		return build(text, reiwaOffset+eraYear, m[2], m[3])
	}

	if m := gregorianExpr.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return build(text, year, m[2], m[3])
	}

	return time.Time{}, &DateParseError{Text: text}
}

// Normalize folds full-width runes to their narrow form and drops all whitespace.
func Normalize(text string) string {
	s := width.Fold.String(text)
	s = strings.ReplaceAll(s, "　", " ")
	return strings.Join(strings.Fields(s), "")
}

func build(text string, year int, monthText, dayText string) (time.Time, error) {
	month, _ := strconv.Atoi(monthText)
	day, _ := strconv.Atoi(dayText)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, &DateParseError{
			Text:   text,
			Reason: fmt.Sprintf("no such calendar date %04d-%02d-%02d", year, month, day),
		}
	}
	return t, nil
}
