package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/infra/logging"
	"compsbot/internal/packet"
	"compsbot/internal/render"
)

// compsPayload is the JSON body of POST /v1/comps.
type compsPayload struct {
	Address          string                  `json:"address"`
	Condition        string                  `json:"condition"`
	AssignmentFee    int                     `json:"assignment_fee"`
	HighlightTier    string                  `json:"highlight_tier"`
	SubjectOverrides domain.SubjectOverrides `json:"subject_overrides"`
}

// PacketHandler serves the comps endpoints. One instance is shared across
// routes so they reuse a single renderer/Chrome pool.
type PacketHandler struct {
	Config   *config.Config
	Redis    *redis.Client
	Service  *packet.Service
	Renderer *render.Renderer
}

// NewPacketHandler creates the handler set.
func NewPacketHandler(cfg config.Config, rdb *redis.Client, svc *packet.Service, renderer *render.Renderer) *PacketHandler {
	return &PacketHandler{Config: &cfg, Redis: rdb, Service: svc, Renderer: renderer}
}

// HandleComps runs the full pipeline for a JSON comps request and responds
// with the PDF. The valuation summary travels in the X-Packet-Summary header.
func (h *PacketHandler) HandleComps(c *fiber.Ctx) error {
	var payload compsPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}

	req, err := h.Service.Normalize(domain.PacketRequest{
		Address:       payload.Address,
		Condition:     payload.Condition,
		AssignmentFee: payload.AssignmentFee,
		HighlightTier: payload.HighlightTier,
		Overrides:     payload.SubjectOverrides,
	})
	if err != nil {
		return translateError(err)
	}

	cacheKey := computeCacheKey(req)

	if h.Redis != nil && h.Config.Cache.PDFCacheEnabled {
		if cached, err := h.getCachedPDF(c, cacheKey); err == nil && cached != nil {
			return c.Send(cached)
		}
	}

	doc, summary, err := h.Service.Build(c.Context(), req)
	if err != nil {
		logging.Error("Comps request failed", "address", req.Address, "error", err.Error())
		return translateError(err)
	}

	if len(doc.Bytes) > h.Config.Limits.MaxPDFBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}

	if h.Redis != nil && h.Config.Cache.PDFCacheEnabled {
		h.setCachedPDF(c, cacheKey, doc.Bytes, summary)
	}

	requestID := c.Get("X-Request-ID")
	logging.Info("Comp packet served", "address", req.Address, "request_id", requestID)

	c.Set("Content-Type", doc.ContentType)
	c.Set("Content-Disposition", "attachment; filename="+doc.Filename)
	c.Set("X-Packet-Summary", summary)
	return c.Send(doc.Bytes)
}

// translateError is the only place pipeline errors become HTTP statuses.
func translateError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusRequestTimeout, "PDF rendering took too long")
	case errors.Is(err, domain.ErrEnvironment):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrComposition):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Comp packet generation failed: "+err.Error())
	}
}

// computeCacheKey hashes the normalized request so identical requests share a
// cached PDF.
func computeCacheKey(req domain.PacketRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Address))
	h.Write([]byte(req.Condition))
	h.Write([]byte(strconv.Itoa(req.AssignmentFee)))
	h.Write([]byte(req.HighlightTier))
	h.Write([]byte(fmt.Sprintf("%d|%g|%d|%d", req.Overrides.Beds, req.Overrides.Baths, req.Overrides.Sqft, req.Overrides.Year)))
	return "packetcache:" + hex.EncodeToString(h.Sum(nil))
}

func (h *PacketHandler) getCachedPDF(c *fiber.Ctx, key string) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	cached, err := h.Redis.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, err
	}

	logging.Info("Packet cache hit", "key", key)
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", "attachment; filename="+packet.DocumentFilename)
	if summary, err := h.Redis.Get(ctxRedis, key+":summary").Result(); err == nil && summary != "" {
		c.Set("X-Packet-Summary", summary)
	}
	return cached, nil
}

func (h *PacketHandler) setCachedPDF(c *fiber.Ctx, key string, data []byte, summary string) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	ttl := h.Config.Cache.PDFCacheTTL
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := h.Redis.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
	if err := h.Redis.Set(ctxRedis, key+":summary", summary, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}

// HandleChromeStats exposes basic observability for the Chrome pool.
func (h *PacketHandler) HandleChromeStats(c *fiber.Ctx) error {
	s, enabled, err := h.Renderer.PoolStats()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Chrome pool init failed: "+err.Error())
	}

	if !enabled {
		return c.JSON(fiber.Map{
			"enabled":        false,
			"capacity":       0,
			"idle":           0,
			"in_use":         0,
			"pool_size_conf": h.Config.PDF.ChromePoolSize,
			"profile_dir":    "",
			"timeout_secs":   h.Config.PDF.TimeoutSecs,
			"restarts":       0,
		})
	}

	return c.JSON(fiber.Map{
		"enabled":        s.Enabled,
		"capacity":       s.Capacity,
		"idle":           s.Idle,
		"in_use":         s.InUse,
		"pool_size_conf": s.PoolSizeConf,
		"profile_dir":    s.ProfileDir,
		"timeout_secs":   h.Config.PDF.TimeoutSecs,
		"restarts":       s.Restarts,
		"last_restart":   s.LastRestart,
	})
}
