package comps

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"compsbot/internal/config"
	"compsbot/internal/domain"
)

// highlightIndex maps the request's highlight tier name onto an index into
// the configured MAO tiers.
var highlightIndex = map[string]int{
	"aggressive": 0,
	"standard":   1,
	"hot":        2,
}

// Valuate derives the full valuation for a subject from its enriched comps.
// The comp slice must be non-empty and already filtered to comps with a
// price-per-sqft basis.
func Valuate(cfg config.Config, subj domain.Subject, comps []domain.Comp, condition string, assignmentFee int, highlight string) (domain.Valuation, error) {
	if len(comps) == 0 {
		return domain.Valuation{}, fmt.Errorf("%w: no usable comps for valuation", domain.ErrComposition)
	}

	median := medianPPSF(comps)
	arv := int(math.Round(median * float64(subj.Sqft)))

	psf, ok := cfg.Valuation.RehabPSF[condition]
	if !ok {
		psf = cfg.Valuation.RehabPSF[cfg.Valuation.DefaultCondition]
	}
	rehab := int(math.Round(float64(subj.Sqft) * psf))

	rows := make([]domain.MAORow, 0, len(cfg.Valuation.MAOTiers))
	for _, tier := range cfg.Valuation.MAOTiers {
		buyerMax := int(math.Round(float64(arv)*tier)) - rehab
		rows = append(rows, domain.MAORow{
			Tier:     strconv.Itoa(int(math.Round(tier*100))) + "%",
			BuyerMax: buyerMax,
			YourMAO:  buyerMax - assignmentFee,
		})
	}

	// Cash-buyer lens: a modest discount off the retail ppsf.
	dispo := int(math.Round(cfg.Valuation.CashDiscount * median * float64(subj.Sqft)))

	idx, ok := highlightIndex[highlight]
	if !ok {
		idx = highlightIndex[cfg.Valuation.DefaultHighlight]
	}
	if idx >= len(rows) {
		idx = 0
	}

	return domain.Valuation{
		MedianPPSF:     median,
		ARV:            arv,
		RehabCost:      rehab,
		DispoPrice:     dispo,
		MAORows:        rows,
		HighlightLabel: rows[idx].Tier,
		HighlightMAO:   rows[idx].YourMAO,
	}, nil
}

// Summary renders the one-line deal summary that accompanies the packet.
func Summary(v domain.Valuation, condition string) string {
	return fmt.Sprintf("ARV $%s • Rehab (%s) $%s • %s MAO $%s • Dispo $%s",
		Comma(v.ARV), condition, Comma(v.RehabCost), v.HighlightLabel, Comma(v.HighlightMAO), Comma(v.DispoPrice))
}

// Comma formats an integer with thousands separators; negatives keep their
// sign in front of the grouped digits.
func Comma(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return sign + s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return sign + strings.Join(parts, ",")
}
