package compose

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compsbot/internal/domain"
)

func testPacket() domain.Packet {
	return domain.Packet{
		Subject: domain.Subject{
			Address: "500 Ocean Ave, Boca Raton, FL 33487",
			Beds:    3, Baths: 2, Sqft: 1627, Year: 1992,
		},
		Condition:     "fair",
		AssignmentFee: 20000,
		Comps: []domain.Comp{
			{
				Address: "17267 Ventana Dr, Boca Raton, FL 33487", SoldPrice: 650000,
				SoldDate: time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
				Beds:     3, Baths: 2, Sqft: 1820, Year: 1992,
				DaysSinceSale: 61, PricePerSqft: 357.14, Score: 93,
				Reasons: "same beds • same baths", CashStatus: "Pending",
			},
		},
		Valuation: domain.Valuation{
			MedianPPSF: 357.14, ARV: 581067, RehabCost: 69148, DispoPrice: 552014,
			MAORows: []domain.MAORow{
				{Tier: "65%", BuyerMax: 308545, YourMAO: 288545},
			},
			HighlightLabel: "65%", HighlightMAO: 288545,
		},
	}
}

func TestCompose_Deterministic(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	pkt := testPacket()
	first, err := c.Compose(pkt)
	require.NoError(t, err)
	second, err := c.Compose(pkt)
	require.NoError(t, err)

	require.Equal(t, first, second, "identical packets must compose to byte-identical markup")
	require.NotEmpty(t, first)
}

func TestCompose_ContainsPacketData(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	html, err := c.Compose(testPacket())
	require.NoError(t, err)

	for _, want := range []string{
		"500 Ocean Ave, Boca Raton, FL 33487",
		"17267 Ventana Dr",
		"$581,067",  // ARV
		"$69,148",   // rehab
		"$552,014",  // dispo
		"$288,545",  // highlighted MAO
		"2025-06-30",
		"Fair",
		"Pending",
		"65%",
	} {
		require.Contains(t, html, want)
	}
}

func TestCompose_EscapesUserText(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	pkt := testPacket()
	pkt.Subject.Address = `<script>alert("pwn")</script>`
	html, err := c.Compose(pkt)
	require.NoError(t, err)

	require.NotContains(t, html, "<script>alert")
	require.Contains(t, html, "&lt;script&gt;")
}

func TestCompose_StructuralErrors(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	noComps := testPacket()
	noComps.Comps = nil
	_, err = c.Compose(noComps)
	require.True(t, errors.Is(err, domain.ErrComposition), "no comps: got %v", err)

	noTiers := testPacket()
	noTiers.Valuation.MAORows = nil
	_, err = c.Compose(noTiers)
	require.True(t, errors.Is(err, domain.ErrComposition), "no tiers: got %v", err)

	noBasis := testPacket()
	noBasis.Comps[0].PricePerSqft = 0
	_, err = c.Compose(noBasis)
	require.True(t, errors.Is(err, domain.ErrComposition), "no ppsf: got %v", err)
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{"": "", "fair": "Fair", "Fair": "Fair", "x": "X"}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompose_IsFullHTMLDocument(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	html, err := c.Compose(testPacket())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!DOCTYPE html>"))
	require.Contains(t, html, "</html>")
}
