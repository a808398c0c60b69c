// Package period handles quarterly time periods as published by statistical agencies.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Quarter is a calendar quarter. Q is in 1..4.
type Quarter struct {
	Year int `json:"year"`
	Q    int `json:"quarter"`
}

var quarterRe = regexp.MustCompile(`^(\d{4})\s*-?\s*[Qq]([1-4])$`)

// ParseQuarter parses "2020Q1", "2020-Q1", "2020q1" or "2020 Q1".
func ParseQuarter(s string) (Quarter, error) {
	m := quarterRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: expected YYYYQn (e.g. 2020Q1)", s)
	}
	y, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return Quarter{Year: y, Q: q}, nil
}

// FromIndex is the inverse of Index.
func FromIndex(i int) Quarter {
	y := i / 4
	q := i%4 + 1
	if i < 0 && i%4 != 0 {
		y--
		q = i%4 + 5
	}
	return Quarter{Year: y, Q: q}
}

// Index returns a monotonically increasing ordinal for the quarter.
func (q Quarter) Index() int { return q.Year*4 + q.Q - 1 }

// Add shifts the quarter by n quarters (negative n moves backwards).
func (q Quarter) Add(n int) Quarter { return FromIndex(q.Index() + n) }

// Before reports whether q precedes o.
func (q Quarter) Before(o Quarter) bool { return q.Index() < o.Index() }

// Start returns the first instant of the quarter in UTC.
func (q Quarter) Start() time.Time {
	return time.Date(q.Year, time.Month((q.Q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

func (q Quarter) String() string { return fmt.Sprintf("%d-Q%d", q.Year, q.Q) }

// IsZero reports whether q is the zero value.
func (q Quarter) IsZero() bool { return q.Year == 0 && q.Q == 0 }
