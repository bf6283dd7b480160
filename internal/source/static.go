package source

import (
	"context"
	"time"

	"compsbot/internal/domain"
)

// Static serves a fixed comp set regardless of address. It keeps the full
// pipeline deployable before a live portal or MLS feed is wired in, and
// doubles as the fixture source for tests.
type Static struct {
	comps []domain.Comp
}

// NewStatic builds the fixture source.
func NewStatic() *Static {
	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	return &Static{comps: []domain.Comp{
		{Address: "17267 Ventana Dr, Boca Raton, FL 33487", SoldPrice: 650000, SoldDate: d(2025, time.June, 30), Beds: 3, Baths: 2, Sqft: 1820, Year: 1992},
		{Address: "17165 Balboa Point Way, Boca Raton, FL 33487", SoldPrice: 800000, SoldDate: d(2025, time.July, 7), Beds: 3, Baths: 2.5, Sqft: 2304, Year: 1992},
		{Address: "17357 Balboa Point Way, Boca Raton, FL 33487", SoldPrice: 735000, SoldDate: d(2025, time.March, 7), Beds: 4, Baths: 2, Sqft: 2013, Year: 1992},
	}}
}

// FetchComps returns a copy of the fixture set.
func (s *Static) FetchComps(ctx context.Context, address string) ([]domain.Comp, error) {
	out := make([]domain.Comp, len(s.comps))
	copy(out, s.comps)
	return out, nil
}
