package rota

import (
	"errors"
	"testing"
	"time"
)

func mustDay(t *testing.T, y int, m time.Month, d int) Day {
	t.Helper()
	day, err := NewDay(y, m, d)
	if err != nil {
		t.Fatalf("new day %d-%d-%d: %v", y, m, d, err)
	}
	return day
}

func TestCalculateWeekScenarios(t *testing.T) {
	cases := []struct {
		name   string
		input  Day
		monday Day
		sunday Day
	}{
		{"mid-week wednesday", Day{2009, time.September, 16}, Day{2009, time.September, 14}, Day{2009, time.September, 20}},
		{"monday on year start", Day{2024, time.January, 1}, Day{2024, time.January, 1}, Day{2024, time.January, 7}},
		{"monday in previous year", Day{2025, time.January, 1}, Day{2024, time.December, 30}, Day{2025, time.January, 5}},
		{"sunday", Day{2009, time.September, 20}, Day{2009, time.September, 14}, Day{2009, time.September, 20}},
		{"leap day", Day{2024, time.February, 29}, Day{2024, time.February, 26}, Day{2024, time.March, 3}},
		{"month boundary", Day{2023, time.March, 2}, Day{2023, time.February, 27}, Day{2023, time.March, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := CalculateWeek(tc.input)
			if w.Monday() != tc.monday {
				t.Fatalf("monday = %s, want %s", w.Monday(), tc.monday)
			}
			if w.Sunday() != tc.sunday {
				t.Fatalf("sunday = %s, want %s", w.Sunday(), tc.sunday)
			}
		})
	}
}

func TestCalculateWeekProperties(t *testing.T) {
	start := mustDay(t, 2019, time.December, 1)
	for i := 0; i < 800; i++ {
		d := start.AddDays(i)
		w := CalculateWeek(d)
		if len(w) != 7 {
			t.Fatalf("week length %d", len(w))
		}
		if w[0].ISOWeekday() != 1 {
			t.Fatalf("%s: week starts on iso weekday %d", d, w[0].ISOWeekday())
		}
		for j := 1; j < len(w); j++ {
			if w[j] != w[j-1].AddDays(1) {
				t.Fatalf("%s: days %s and %s are not consecutive", d, w[j-1], w[j])
			}
		}
		if !w.Contains(d) {
			t.Fatalf("%s not in its own week %v", d, w)
		}
		if again := CalculateWeek(d); again != w {
			t.Fatalf("%s: second call returned %v, want %v", d, again, w)
		}
		for _, other := range w {
			if CalculateWeek(other) != w {
				t.Fatalf("%s and %s share a week but calculate differently", d, other)
			}
		}
	}
}

func TestNewDayRejectsInvalidDates(t *testing.T) {
	cases := []struct {
		y int
		m time.Month
		d int
	}{
		{2009, 13, 1},
		{2009, 0, 1},
		{2009, time.February, 31},
		{2023, time.February, 29},
		{2009, time.April, 31},
		{2009, time.May, 0},
		{0, time.May, 1},
	}
	for _, tc := range cases {
		if _, err := NewDay(tc.y, tc.m, tc.d); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("NewDay(%d,%d,%d) err = %v, want ErrInvalidDate", tc.y, tc.m, tc.d, err)
		}
	}
	if _, err := NewDay(2024, time.February, 29); err != nil {
		t.Fatalf("leap day rejected: %v", err)
	}
}

func TestResolveWeek(t *testing.T) {
	today := mustDay(t, 2009, time.September, 16)
	w, err := ResolveWeek(0, 0, 0, today)
	if err != nil {
		t.Fatal(err)
	}
	if w.Monday() != mustDay(t, 2009, time.September, 14) {
		t.Fatalf("default week starts %s", w.Monday())
	}
	w, err = ResolveWeek(2024, 1, 3, today)
	if err != nil {
		t.Fatal(err)
	}
	if w.Monday() != mustDay(t, 2024, time.January, 1) {
		t.Fatalf("explicit week starts %s", w.Monday())
	}
	if _, err := ResolveWeek(2024, 2, 30, today); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDayParsingAndFormatting(t *testing.T) {
	d, err := ParseDay("2009-09-16")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2009-09-16" || d.ISOWeekday() != 3 {
		t.Fatalf("parsed %s weekday %d", d, d.ISOWeekday())
	}
	if _, err := ParseDay("2009-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	w := CalculateWeek(d)
	if w.Next().Monday() != mustDay(t, 2009, time.September, 21) || w.Previous().Monday() != mustDay(t, 2009, time.September, 7) {
		t.Fatalf("next/previous weeks wrong: %v %v", w.Next(), w.Previous())
	}
}
