package period

import (
	"testing"
	"time"
)

func TestParseQuarterFormats(t *testing.T) {
	for _, in := range []string{"2020Q3", "2020-Q3", "2020q3", " 2020 Q3 "} {
		q, err := ParseQuarter(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if q.Year != 2020 || q.Q != 3 {
			t.Fatalf("%q: got %+v", in, q)
		}
	}
	for _, bad := range []string{"", "2020", "2020Q5", "20Q1", "2020-03"} {
		if _, err := ParseQuarter(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestQuarterArithmetic(t *testing.T) {
	q := Quarter{Year: 2021, Q: 1}
	if got := q.Add(-4); got != (Quarter{2020, 1}) {
		t.Fatalf("Add(-4) = %v", got)
	}
	if got := q.Add(-1); got != (Quarter{2020, 4}) {
		t.Fatalf("Add(-1) = %v", got)
	}
	if got := q.Add(7); got != (Quarter{2022, 4}) {
		t.Fatalf("Add(7) = %v", got)
	}
	if !q.Add(-1).Before(q) {
		t.Fatalf("expected previous quarter to sort first")
	}
	if got := (Quarter{2023, 4}).Start(); !got.Equal(time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Start = %v", got)
	}
	if s := (Quarter{2019, 2}).String(); s != "2019-Q2" {
		t.Fatalf("String = %s", s)
	}
}
