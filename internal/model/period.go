package model

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
)

// Period identifies one reporting period: a year, optionally narrowed to a
// quarter. Quarter 0 means a full-year period.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter,omitempty"`
}

var (
	yearRe        = regexp.MustCompile(`^(\d{4})$`)
	yearQuarterRe = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	yearMonthRe   = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// ParsePeriod parses a period key. Accepted forms: "2025" (full year),
// "2025-Q3" (explicit quarter), "2025-07" (quarter derived from month as
// ((month-1)/3)+1).
func ParsePeriod(s string) (Period, error) {
	if m := yearRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Period{Year: year}, nil
	}
	if m := yearQuarterRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		return Period{Year: year, Quarter: quarter}, nil
	}
	if m := yearMonthRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Period{}, eris.Errorf("model: invalid month in period %q", s)
		}
		return Period{Year: year, Quarter: ((month - 1) / 3) + 1}, nil
	}
	return Period{}, eris.Errorf("model: invalid period %q (want YYYY, YYYY-Qn, or YYYY-MM)", s)
}

// String renders the canonical period key.
func (p Period) String() string {
	if p.Quarter > 0 {
		return fmt.Sprintf("%d-Q%d", p.Year, p.Quarter)
	}
	return strconv.Itoa(p.Year)
}

// Before reports whether p is an earlier period than other. A full-year
// period sorts before any quarter of the same year.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Quarter < other.Quarter
}
