// Package packet runs the comps pipeline: resolve comps for a subject, score
// them, value the deal, compose the document and print it.
package packet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compsbot/internal/compose"
	"compsbot/internal/comps"
	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/infra/logging"
	"compsbot/internal/source"
)

// DocumentFilename is the name attached to every generated packet.
const DocumentFilename = "comps_report.pdf"

// PDFRenderer is the rendering boundary the service depends on. Satisfied by
// *render.Renderer; tests substitute a fake.
type PDFRenderer interface {
	Render(html string) ([]byte, error)
}

// Service is the comps packet pipeline. It is safe for concurrent use: all
// state is read-only after construction.
type Service struct {
	cfg      config.Config
	source   source.CompSource
	composer *compose.Composer
	renderer PDFRenderer
	now      func() time.Time
}

// NewService wires the pipeline together.
func NewService(cfg config.Config, src source.CompSource, renderer PDFRenderer) (*Service, error) {
	composer, err := compose.New()
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		source:   src,
		composer: composer,
		renderer: renderer,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Normalize validates the raw request and applies the configured defaults.
// The returned request is the canonical form used for caching and analysis.
func (s *Service) Normalize(req domain.PacketRequest) (domain.PacketRequest, error) {
	req.Address = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(req.Address), ","))
	if req.Address == "" {
		return req, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}

	req.Condition = strings.ToLower(strings.TrimSpace(req.Condition))
	if req.Condition == "" {
		req.Condition = s.cfg.Valuation.DefaultCondition
	}
	if _, ok := s.cfg.Valuation.RehabPSF[req.Condition]; !ok {
		return req, fmt.Errorf("%w: unknown condition %q", domain.ErrValidation, req.Condition)
	}

	if req.AssignmentFee < 0 {
		return req, fmt.Errorf("%w: assignment fee must not be negative", domain.ErrValidation)
	}
	if req.AssignmentFee == 0 {
		req.AssignmentFee = s.cfg.Valuation.DefaultAssignmentFee
	}

	req.HighlightTier = strings.ToLower(strings.TrimSpace(req.HighlightTier))
	if req.HighlightTier == "" {
		req.HighlightTier = s.cfg.Valuation.DefaultHighlight
	}

	if req.Overrides.Beds < 0 || req.Overrides.Baths < 0 || req.Overrides.Sqft < 0 || req.Overrides.Year < 0 {
		return req, fmt.Errorf("%w: subject overrides must not be negative", domain.ErrValidation)
	}
	return req, nil
}

func (s *Service) subject(req domain.PacketRequest) domain.Subject {
	def := s.cfg.Valuation.SubjectDefaults
	subj := domain.Subject{
		Address: req.Address,
		Beds:    def.Beds,
		Baths:   def.Baths,
		Sqft:    def.Sqft,
		Year:    def.Year,
	}
	if req.Overrides.Beds > 0 {
		subj.Beds = req.Overrides.Beds
	}
	if req.Overrides.Baths > 0 {
		subj.Baths = req.Overrides.Baths
	}
	if req.Overrides.Sqft > 0 {
		subj.Sqft = req.Overrides.Sqft
	}
	if req.Overrides.Year > 0 {
		subj.Year = req.Overrides.Year
	}
	return subj
}

// Analyze runs everything up to (but not including) the PDF print: comp
// resolution, scoring and valuation. The request must already be normalized.
func (s *Service) Analyze(ctx context.Context, req domain.PacketRequest) (domain.Packet, error) {
	subj := s.subject(req)

	raw, err := s.source.FetchComps(ctx, req.Address)
	if err != nil {
		return domain.Packet{}, err
	}

	scored := comps.Enrich(subj, raw, s.now())
	if len(scored) == 0 {
		return domain.Packet{}, fmt.Errorf("%w: no comparable sales found for %q", domain.ErrValidation, req.Address)
	}

	valuation, err := comps.Valuate(s.cfg, subj, scored, req.Condition, req.AssignmentFee, req.HighlightTier)
	if err != nil {
		return domain.Packet{}, err
	}

	return domain.Packet{
		Subject:       subj,
		Condition:     req.Condition,
		AssignmentFee: req.AssignmentFee,
		Comps:         scored,
		Valuation:     valuation,
	}, nil
}

// Build runs the full pipeline and returns the rendered document plus the
// one-line deal summary.
func (s *Service) Build(ctx context.Context, req domain.PacketRequest) (*domain.RenderedDocument, string, error) {
	pkt, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, "", err
	}

	html, err := s.composer.Compose(pkt)
	if err != nil {
		return nil, "", err
	}

	pdfBuf, err := s.renderer.Render(html)
	if err != nil {
		return nil, "", err
	}

	logging.Info("Comp packet rendered",
		"address", req.Address, "comps", len(pkt.Comps), "bytes", len(pdfBuf))

	doc := &domain.RenderedDocument{
		Bytes:       pdfBuf,
		ContentType: "application/pdf",
		Filename:    DocumentFilename,
		GeneratedAt: s.now(),
	}
	return doc, comps.Summary(pkt.Valuation, pkt.Condition), nil
}
