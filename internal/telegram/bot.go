package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"compsbot/internal/comps"
	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/infra/logging"
	"compsbot/internal/packet"
)

// Updater is the receive side of the Bot API, split from Sender so the loop
// can be driven by a fake in tests.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSecs int) ([]Update, error)
}

// API is the full client surface the bot needs.
type API interface {
	Sender
	Updater
}

// Bot polls for /comp commands, runs the pipeline and delivers the packet
// back into the chat.
type Bot struct {
	cfg    config.Config
	api    API
	svc    *packet.Service
	offset int64
}

// NewBot wires the command loop.
func NewBot(cfg config.Config, api API, svc *packet.Service) *Bot {
	return &Bot{cfg: cfg, api: api, svc: svc}
}

// Run polls until ctx is canceled. Poll errors back off briefly instead of
// spinning.
func (b *Bot) Run(ctx context.Context) {
	logging.Info("Telegram bot polling started", "timeout_secs", b.cfg.Telegram.PollTimeoutSecs)
	for {
		if ctx.Err() != nil {
			logging.Info("Telegram bot polling stopped")
			return
		}

		updates, err := b.api.GetUpdates(ctx, b.offset, b.cfg.Telegram.PollTimeoutSecs)
		if err != nil {
			if ctx.Err() != nil {
				logging.Info("Telegram bot polling stopped")
				return
			}
			logging.Warn("Telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= b.offset {
				b.offset = upd.UpdateID + 1
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd Update) {
	if upd.Message == nil || upd.Message.Text == "" {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	switch {
	case strings.HasPrefix(text, "/comp"):
		b.handleComp(ctx, chatID, text)
	case strings.HasPrefix(text, "/about"):
		if err := b.api.SendMarkdown(ctx, chatID, aboutText); err != nil {
			logging.Warn("About reply failed", "error", err)
		}
	}
}

func (b *Bot) handleComp(ctx context.Context, chatID int64, text string) {
	req, err := parseCompCommand(text)
	if err != nil {
		if err := b.api.SendMessage(ctx, chatID, compUsage); err != nil {
			logging.Warn("Usage reply failed", "error", err)
		}
		return
	}

	req, err = b.svc.Normalize(req)
	if err != nil {
		_ = b.api.SendMessage(ctx, chatID, "Cannot run comps: "+userMessage(err))
		return
	}

	ack := fmt.Sprintf("Running comps for:\n%s\nMAO: %s • Condition: %s • Fee: $%s\nPlease wait…",
		req.Address, req.HighlightTier, req.Condition, comps.Comma(req.AssignmentFee))
	if err := b.api.SendMessage(ctx, chatID, ack); err != nil {
		logging.Warn("Ack reply failed", "error", err)
	}

	doc, summary, err := b.svc.Build(ctx, req)
	if err != nil {
		logging.Error("Comp packet build failed", "address", req.Address, "error", err)
		_ = b.api.SendMessage(ctx, chatID, "Comp run failed: "+userMessage(err))
		return
	}

	if err := b.api.SendDocument(ctx, chatID, doc); err != nil {
		// Delivery failures are reported, not retried; the platform already
		// rejected this payload once.
		logging.Error("Packet delivery failed", "address", req.Address, "error", err)
		_ = b.api.SendMessage(ctx, chatID, "Could not deliver the packet: "+userMessage(err))
		return
	}

	if err := b.api.SendMessage(ctx, chatID, summary); err != nil {
		logging.Warn("Summary reply failed", "error", err)
	}
}

// userMessage keeps chat-facing errors short and free of internals.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, domain.ErrEnvironment):
		return "the rendering engine is unavailable, try again later"
	case errors.Is(err, domain.ErrDelivery):
		return "the document was rejected by the messaging platform"
	case errors.Is(err, context.DeadlineExceeded):
		return "rendering took too long"
	default:
		return "internal error"
	}
}
