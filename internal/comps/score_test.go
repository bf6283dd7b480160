package comps

import (
	"testing"
	"time"

	"compsbot/internal/domain"
)

var testNow = time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)

func testSubject() domain.Subject {
	return domain.Subject{Address: "1 Main St", Beds: 3, Baths: 2, Sqft: 2000, Year: 1990}
}

func TestDaysSince(t *testing.T) {
	tests := []struct {
		sold time.Time
		want int
	}{
		{time.Date(2025, time.August, 30, 23, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, time.August, 29, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), 61},
		{time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC), 176},
	}
	for _, tc := range tests {
		if got := DaysSince(tc.sold, testNow); got != tc.want {
			t.Fatalf("DaysSince(%v) = %d, want %d", tc.sold, got, tc.want)
		}
	}
}

func TestScore(t *testing.T) {
	subj := testSubject()

	perfect := domain.Comp{Beds: 3, Baths: 2, Sqft: 2000, Year: 1990, DaysSinceSale: 0}
	if got := Score(subj, perfect); got != 100 {
		t.Fatalf("perfect comp score = %d, want 100", got)
	}

	yearOld := perfect
	yearOld.DaysSinceSale = 365
	if got := Score(subj, yearOld); got != 80 {
		t.Fatalf("year-old comp score = %d, want 80", got)
	}

	// Recency penalty is capped at one year.
	ancient := perfect
	ancient.DaysSinceSale = 3650
	if got := Score(subj, ancient); got != 80 {
		t.Fatalf("ancient comp score = %d, want 80 (capped recency)", got)
	}

	doubleSize := perfect
	doubleSize.Sqft = 4000
	if got := Score(subj, doubleSize); got != 79 {
		t.Fatalf("double-size comp score = %d, want 79", got)
	}

	bedOff := perfect
	bedOff.Beds = 4
	if got := Score(subj, bedOff); got != 92 {
		t.Fatalf("bed-diff comp score = %d, want 92", got)
	}

	bathOff := perfect
	bathOff.Baths = 3
	if got := Score(subj, bathOff); got != 90 {
		t.Fatalf("bath-diff comp score = %d, want 90", got)
	}

	// Year term applies only when both years are known.
	noYear := perfect
	noYear.Year = 0
	if got := Score(subj, noYear); got != 100 {
		t.Fatalf("unknown-year comp score = %d, want 100", got)
	}

	awful := domain.Comp{Beds: 9, Baths: 9, Sqft: 100, Year: 1900, DaysSinceSale: 365}
	if got := Score(subj, awful); got != 0 {
		t.Fatalf("awful comp score = %d, want 0 (clamped)", got)
	}
}

func TestReasons(t *testing.T) {
	subj := testSubject()

	c := domain.Comp{Beds: 3, Baths: 2, Sqft: 1950, DaysSinceSale: 30}
	got := Reasons(subj, c)
	want := "~size match • same beds • same baths"
	if got != want {
		t.Fatalf("Reasons = %q, want %q (capped at three)", got, want)
	}

	recent := domain.Comp{Beds: 4, Baths: 3, Sqft: 900, DaysSinceSale: 12}
	if got := Reasons(subj, recent); got != "12d recent" {
		t.Fatalf("Reasons = %q, want \"12d recent\"", got)
	}

	nothing := domain.Comp{Beds: 5, Baths: 4, Sqft: 900, DaysSinceSale: 200}
	if got := Reasons(subj, nothing); got != "" {
		t.Fatalf("Reasons = %q, want empty", got)
	}
}

func TestEnrich_FiltersSortsAndDerives(t *testing.T) {
	subj := domain.Subject{Address: "x", Beds: 3, Baths: 2, Sqft: 1627, Year: 1992}
	raw := []domain.Comp{
		{Address: "no-sqft", SoldPrice: 500000, SoldDate: time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{Address: "a", SoldPrice: 650000, SoldDate: time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), Beds: 3, Baths: 2, Sqft: 1820, Year: 1992},
		{Address: "b", SoldPrice: 800000, SoldDate: time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC), Beds: 3, Baths: 2.5, Sqft: 2304, Year: 1992},
		{Address: "c", SoldPrice: 735000, SoldDate: time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC), Beds: 4, Baths: 2, Sqft: 2013, Year: 1992},
	}

	out := Enrich(subj, raw, testNow)
	if len(out) != 3 {
		t.Fatalf("expected comp without sqft to be dropped, got %d comps", len(out))
	}

	if out[0].Address != "a" || out[1].Address != "b" || out[2].Address != "c" {
		t.Fatalf("unexpected sort order: %s, %s, %s", out[0].Address, out[1].Address, out[2].Address)
	}
	if out[0].Score != 93 || out[1].Score != 82 || out[2].Score != 76 {
		t.Fatalf("unexpected scores: %d, %d, %d", out[0].Score, out[1].Score, out[2].Score)
	}

	for _, c := range out {
		if c.PricePerSqft <= 0 {
			t.Fatalf("comp %s missing ppsf", c.Address)
		}
		if c.CashStatus != "Pending" {
			t.Fatalf("comp %s cash status = %q, want Pending", c.Address, c.CashStatus)
		}
	}
	if out[0].DaysSinceSale != 61 {
		t.Fatalf("comp a days since sale = %d, want 61", out[0].DaysSinceSale)
	}
}

func TestComma(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-42500, "-42,500"},
	}
	for _, tc := range tests {
		if got := Comma(tc.n); got != tc.want {
			t.Fatalf("Comma(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}
