package domain

import "time"

// Subject is the property a comp packet is built for.
type Subject struct {
	Address string
	Beds    int
	Baths   float64
	Sqft    int
	Year    int
}

// Comp is a single comparable sale. Raw fields come from a CompSource;
// derived fields are filled in by the scoring step.
type Comp struct {
	Address   string
	SoldPrice int
	SoldDate  time.Time
	Beds      int
	Baths     float64
	Sqft      int
	Year      int

	// Derived.
	DaysSinceSale int
	PricePerSqft  float64
	Score         int
	Reasons       string
	CashStatus    string
}

// SubjectOverrides carries optional per-request overrides for the subject
// property. Zero values mean "use the configured default".
type SubjectOverrides struct {
	Beds  int     `json:"beds"`
	Baths float64 `json:"baths"`
	Sqft  int     `json:"sqft"`
	Year  int     `json:"year"`
}

// PacketRequest is the validated, immutable input to the rendering pipeline.
type PacketRequest struct {
	Address       string
	Condition     string
	AssignmentFee int
	HighlightTier string
	Overrides     SubjectOverrides
}

// MAORow is one maximum-allowable-offer tier applied to the ARV.
type MAORow struct {
	Tier     string
	BuyerMax int
	YourMAO  int
}

// Valuation is the numeric result of the comps analysis.
type Valuation struct {
	MedianPPSF     float64
	ARV            int
	RehabCost      int
	DispoPrice     int
	MAORows        []MAORow
	HighlightLabel string
	HighlightMAO   int
}

// Packet bundles everything the composer needs to produce the document.
type Packet struct {
	Subject       Subject
	Condition     string
	AssignmentFee int
	Comps         []Comp
	Valuation     Valuation
}

// RenderedDocument is the finished PDF plus metadata. It is produced exactly
// once per request and never mutated afterwards.
type RenderedDocument struct {
	Bytes       []byte
	ContentType string
	Filename    string
	GeneratedAt time.Time
}
