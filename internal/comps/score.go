// Package comps holds the pure comparable-sales analysis: scoring each comp
// against the subject property and deriving the valuation numbers.
package comps

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"compsbot/internal/domain"
)

// DaysSince returns the number of whole days between the sale date and now,
// compared at UTC date precision.
func DaysSince(sold, now time.Time) int {
	y1, m1, d1 := sold.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Score rates a comp from 0 to 100 against the subject. Recency, size ratio,
// bed/bath differences and year gap each subtract from a perfect score. The
// year term only applies when both years are known.
func Score(subj domain.Subject, c domain.Comp) int {
	days := math.Min(float64(c.DaysSinceSale), 365)

	bedDiff := math.Abs(float64(c.Beds - subj.Beds))
	bathDiff := math.Abs(c.Baths - subj.Baths)

	yrDiff := 0.0
	if subj.Year != 0 && c.Year != 0 {
		yrDiff = math.Min(math.Abs(float64(c.Year-subj.Year)), 60)
	}

	compSqft := float64(c.Sqft)
	if compSqft <= 0 {
		compSqft = 1
	}
	subjSqft := math.Max(1, float64(subj.Sqft))
	sizeTerm := math.Abs(math.Log(compSqft / subjSqft))

	score := 100 - 20*days/365 - 30*sizeTerm - 8*bedDiff - 10*bathDiff - 10*yrDiff/60
	if score < 0 {
		return 0
	}
	return int(math.Round(score))
}

// Reasons produces a short human-readable justification for a comp's score,
// capped at three bullets.
func Reasons(subj domain.Subject, c domain.Comp) string {
	var r []string
	if subj.Sqft > 0 && c.Sqft > 0 && math.Abs(float64(c.Sqft-subj.Sqft))/float64(subj.Sqft) <= 0.1 {
		r = append(r, "~size match")
	}
	if c.Beds == subj.Beds {
		r = append(r, "same beds")
	}
	if c.Baths == subj.Baths {
		r = append(r, "same baths")
	}
	if c.DaysSinceSale <= 45 {
		r = append(r, fmt.Sprintf("%dd recent", c.DaysSinceSale))
	}
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.Join(r, " • ")
}

// verifyCashStatus is the hook for a deed/mortgage record check. It reports
// Pending until a county-records integration lands.
func verifyCashStatus(c domain.Comp) string {
	return "Pending"
}

// Enrich fills the derived fields of each comp, drops comps without a usable
// price-per-sqft basis and sorts best-first (score descending, then most
// recent sale).
func Enrich(subj domain.Subject, raw []domain.Comp, now time.Time) []domain.Comp {
	out := make([]domain.Comp, 0, len(raw))
	for _, c := range raw {
		c.DaysSinceSale = DaysSince(c.SoldDate, now)
		if c.Sqft > 0 {
			c.PricePerSqft = float64(c.SoldPrice) / float64(c.Sqft)
		}
		c.Score = Score(subj, c)
		c.Reasons = Reasons(subj, c)
		c.CashStatus = verifyCashStatus(c)

		if c.PricePerSqft > 0 {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DaysSinceSale < out[j].DaysSinceSale
	})
	return out
}

func medianPPSF(comps []domain.Comp) float64 {
	vals := make([]float64, 0, len(comps))
	for _, c := range comps {
		vals = append(vals, c.PricePerSqft)
	}
	sort.Float64s(vals)
	n := len(vals)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
