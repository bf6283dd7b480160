// Package telegram is the messaging collaborator: a thin Bot API client plus
// the long-polling command loop that feeds the comps pipeline.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"resty.dev/v3"

	"compsbot/internal/config"
	"compsbot/internal/domain"
)

// Sender is the narrow delivery surface the bot loop depends on.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, doc *domain.RenderedDocument) error
}

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	http        *resty.Client
	maxDocBytes int
}

// NewClient builds a Bot API client for the given token.
func NewClient(cfg config.Config, token string) *Client {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", cfg.Telegram.APIBase, token)).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetTimeout(time.Duration(cfg.Telegram.PollTimeoutSecs+30) * time.Second)

	return &Client{
		http:        client,
		maxDocBytes: cfg.Telegram.MaxDocumentBytes,
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() {
	_ = c.http.Close()
}

func (c *Client) call(ctx context.Context, method string, formData map[string]string, doc *domain.RenderedDocument) (*apiResponse, error) {
	req := c.http.R().SetContext(ctx).SetFormData(formData)
	if doc != nil {
		req.SetFileReader("document", doc.Filename, bytes.NewReader(doc.Bytes))
	}

	resp, err := req.Post("/" + method)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return nil, fmt.Errorf("%s: unexpected response (status %d)", method, resp.StatusCode())
	}
	if !api.OK {
		return nil, fmt.Errorf("%s: api error %d: %s", method, api.ErrorCode, api.Description)
	}
	return &api, nil
}

// SendMessage sends a plain-text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"text":    text,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

// SendMarkdown sends a Markdown-formatted message.
func (c *Client) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]string{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"text":       text,
		"parse_mode": "Markdown",
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

// SendDocument uploads the rendered packet to the chat. Documents over the
// platform's size cap are rejected locally instead of burning the upload.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc *domain.RenderedDocument) error {
	if c.maxDocBytes > 0 && len(doc.Bytes) > c.maxDocBytes {
		return fmt.Errorf("%w: document is %d bytes, channel cap is %d", domain.ErrDelivery, len(doc.Bytes), c.maxDocBytes)
	}
	_, err := c.call(ctx, "sendDocument", map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
	}, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	return nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSecs int) ([]Update, error) {
	api, err := c.call(ctx, "getUpdates", map[string]string{
		"offset":  strconv.FormatInt(offset, 10),
		"timeout": strconv.Itoa(timeoutSecs),
	}, nil)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(api.Result, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: bad result payload: %v", err)
	}
	return updates, nil
}
