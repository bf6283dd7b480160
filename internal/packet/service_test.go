package packet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/source"
)

type fakeRenderer struct {
	calls   int
	fail    error
	lastDoc string
}

func (f *fakeRenderer) Render(html string) ([]byte, error) {
	f.calls++
	f.lastDoc = html
	if f.fail != nil {
		return nil, f.fail
	}
	return []byte("%PDF-1.7 fake"), nil
}

type emptySource struct{}

func (emptySource) FetchComps(ctx context.Context, address string) ([]domain.Comp, error) {
	return nil, nil
}

func testServiceConfig() config.Config {
	var cfg config.Config
	cfg.Valuation.RehabPSF = map[string]float64{"excellent": 20.0, "fair": 42.5, "poor": 85.0}
	cfg.Valuation.MAOTiers = []float64{0.65, 0.70, 0.75}
	cfg.Valuation.CashDiscount = 0.95
	cfg.Valuation.DefaultCondition = "fair"
	cfg.Valuation.DefaultAssignmentFee = 20000
	cfg.Valuation.DefaultHighlight = "aggressive"
	cfg.Valuation.SubjectDefaults = config.SubjectDefaults{Beds: 3, Baths: 2, Sqft: 1627, Year: 1992}
	return cfg
}

func newTestService(t *testing.T, src source.CompSource, r PDFRenderer) *Service {
	t.Helper()
	svc, err := NewService(testServiceConfig(), src, r)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.SetClock(func() time.Time {
		return time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	})
	return svc
}

func TestNormalize_DefaultsAndValidation(t *testing.T) {
	svc := newTestService(t, source.NewStatic(), &fakeRenderer{})

	req, err := svc.Normalize(domain.PacketRequest{Address: "  500 Ocean Ave, Boca Raton, FL 33487, "})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Address != "500 Ocean Ave, Boca Raton, FL 33487" {
		t.Fatalf("address not trimmed: %q", req.Address)
	}
	if req.Condition != "fair" || req.AssignmentFee != 20000 || req.HighlightTier != "aggressive" {
		t.Fatalf("defaults not applied: %+v", req)
	}

	tests := []struct {
		name string
		req  domain.PacketRequest
	}{
		{"empty address", domain.PacketRequest{}},
		{"blank address", domain.PacketRequest{Address: "   "}},
		{"unknown condition", domain.PacketRequest{Address: "x", Condition: "ruined"}},
		{"negative fee", domain.PacketRequest{Address: "x", AssignmentFee: -5}},
		{"negative override", domain.PacketRequest{Address: "x", Overrides: domain.SubjectOverrides{Sqft: -1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Normalize(tc.req); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalize_CaseInsensitiveCondition(t *testing.T) {
	svc := newTestService(t, source.NewStatic(), &fakeRenderer{})
	req, err := svc.Normalize(domain.PacketRequest{Address: "x", Condition: "  POOR ", HighlightTier: "HOT"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if req.Condition != "poor" || req.HighlightTier != "hot" {
		t.Fatalf("expected lowercased values, got %+v", req)
	}
}

func TestBuild_SuccessProducesDocumentAndSummary(t *testing.T) {
	r := &fakeRenderer{}
	svc := newTestService(t, source.NewStatic(), r)

	req, err := svc.Normalize(domain.PacketRequest{Address: "500 Ocean Ave, Boca Raton, FL 33487"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	doc, summary, err := svc.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", doc.ContentType)
	}
	if doc.Filename != DocumentFilename {
		t.Fatalf("filename = %q", doc.Filename)
	}
	if !strings.HasPrefix(string(doc.Bytes), "%PDF-") {
		t.Fatalf("document bytes missing PDF header")
	}
	if !strings.HasPrefix(summary, "ARV $") || !strings.Contains(summary, "MAO $") {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if r.calls != 1 {
		t.Fatalf("renderer invoked %d times, want 1", r.calls)
	}
	if !strings.Contains(r.lastDoc, "17267 Ventana Dr") {
		t.Fatalf("composed markup missing comp data")
	}
}

func TestBuild_IsDeterministicUpToRendering(t *testing.T) {
	r := &fakeRenderer{}
	svc := newTestService(t, source.NewStatic(), r)

	req, _ := svc.Normalize(domain.PacketRequest{Address: "500 Ocean Ave, Boca Raton, FL 33487"})

	if _, _, err := svc.Build(context.Background(), req); err != nil {
		t.Fatalf("first build: %v", err)
	}
	first := r.lastDoc
	if _, _, err := svc.Build(context.Background(), req); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if first != r.lastDoc {
		t.Fatalf("identical requests must compose identical markup")
	}
}

func TestBuild_NoCompsIsValidationErrorBeforeRender(t *testing.T) {
	r := &fakeRenderer{}
	svc := newTestService(t, emptySource{}, r)

	req, _ := svc.Normalize(domain.PacketRequest{Address: "nowhere"})
	_, _, err := svc.Build(context.Background(), req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty comp set, got %v", err)
	}
	if r.calls != 0 {
		t.Fatalf("renderer must not run for an empty comp set")
	}
}

func TestBuild_RendererErrorsPropagate(t *testing.T) {
	r := &fakeRenderer{fail: fmt.Errorf("%w: no chrome binary", domain.ErrEnvironment)}
	svc := newTestService(t, source.NewStatic(), r)

	req, _ := svc.Normalize(domain.PacketRequest{Address: "500 Ocean Ave"})
	_, _, err := svc.Build(context.Background(), req)
	if !errors.Is(err, domain.ErrEnvironment) {
		t.Fatalf("expected environment error, got %v", err)
	}
}

func TestBuild_SubjectOverridesChangeValuation(t *testing.T) {
	r := &fakeRenderer{}
	svc := newTestService(t, source.NewStatic(), r)

	small, _ := svc.Normalize(domain.PacketRequest{Address: "x", Overrides: domain.SubjectOverrides{Sqft: 1000}})
	large, _ := svc.Normalize(domain.PacketRequest{Address: "x", Overrides: domain.SubjectOverrides{Sqft: 3000}})

	pktSmall, err := svc.Analyze(context.Background(), small)
	if err != nil {
		t.Fatalf("analyze small: %v", err)
	}
	pktLarge, err := svc.Analyze(context.Background(), large)
	if err != nil {
		t.Fatalf("analyze large: %v", err)
	}
	if pktLarge.Valuation.ARV <= pktSmall.Valuation.ARV {
		t.Fatalf("larger subject must have larger ARV: %d vs %d", pktLarge.Valuation.ARV, pktSmall.Valuation.ARV)
	}
}
