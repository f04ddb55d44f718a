// Package client implements the WhatsApp Cloud API (Graph API) client used
// for all outbound traffic: message sends, media lookup, and media download.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ktsujino/watari/common/redact"
	"github.com/ktsujino/watari/common/retry"
	"github.com/ktsujino/watari/common/spec/wire"
)

const (
	defaultGraphBase  = "https://graph.facebook.com"
	defaultAPIVersion = "v17.0"
	defaultTimeout    = 30 * time.Second

	messagingProduct = "whatsapp"
	recipientUser    = "individual"
)

// Config configures a Cloud API client for one account.
type Config struct {
	// AccessToken is the bearer token for the account.
	AccessToken string

	// PhoneNumberID is the sending phone number id; it is part of the
	// message-send URL.
	PhoneNumberID string

	// BaseURL overrides the Graph API endpoint. Defaults to
	// https://graph.facebook.com. Tests point this at a local server.
	BaseURL string

	// APIVersion selects the Graph API version. Defaults to v17.0.
	APIVersion string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration

	// Retry controls backoff for transient failures. Zero value uses
	// retry.DefaultConfig with a Graph-aware retryability check.
	Retry retry.Config
}

// Client talks to the Cloud API for a single account. It is safe for
// concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New returns a Client for the given account credentials.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGraphBase
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = IsRetryable
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// RequestError is a non-2xx Cloud API response.
type RequestError struct {
	StatusCode int
	Detail     wire.APIErrorDetail
	Body       string
}

func (e *RequestError) Error() string {
	if e.Detail.Message != "" {
		return fmt.Sprintf("whatsapp api error (%d, code %d): %s", e.StatusCode, e.Detail.Code, e.Detail.Message)
	}
	return fmt.Sprintf("whatsapp api error (%d): %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether an error is worth retrying: rate limiting and
// server-side failures are, client errors are not. Transport errors (no
// *RequestError in the chain) are always retried.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return true
	}
	return reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= 500
}

// SendMessage POSTs a fully built message payload and returns the API
// response. Transient failures are retried with backoff.
func (c *Client) SendMessage(ctx context.Context, msg *wire.Message) (*wire.SendResponse, error) {
	if msg.MessagingProduct == "" {
		msg.MessagingProduct = messagingProduct
	}
	if msg.RecipientType == "" {
		msg.RecipientType = recipientUser
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.PhoneNumberID)

	c.log.Debug("sending whatsapp message", "to", msg.To, "type", msg.Type)

	var resp wire.SendResponse
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		return c.postJSON(ctx, url, msg, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("whatsapp message sent", "to", msg.To, "type", msg.Type, "message_id", resp.MessageID())
	return &resp, nil
}

// SendText sends a single text message. Callers are responsible for chunking
// long bodies beforehand.
func (c *Client) SendText(ctx context.Context, to, body string) (*wire.SendResponse, error) {
	return c.SendMessage(ctx, &wire.Message{
		To:   to,
		Type: wire.TypeText,
		Text: &wire.Text{Body: body},
	})
}

// SendMedia sends an image, audio, video, document, or sticker message. The
// media is referenced by uploaded id or by public link.
func (c *Client) SendMedia(ctx context.Context, to string, mediaType wire.MessageType, media *wire.Media) (*wire.SendResponse, error) {
	msg := &wire.Message{To: to, Type: mediaType}
	switch mediaType {
	case wire.TypeImage:
		msg.Image = media
	case wire.TypeAudio:
		msg.Audio = media
	case wire.TypeVideo:
		msg.Video = media
	case wire.TypeDocument:
		msg.Document = media
	case wire.TypeSticker:
		msg.Sticker = media
	default:
		return nil, fmt.Errorf("client: %q is not a media message type", mediaType)
	}
	return c.SendMessage(ctx, msg)
}

// SendReaction attaches an emoji to an earlier message. An empty emoji
// removes the reaction.
func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) (*wire.SendResponse, error) {
	return c.SendMessage(ctx, &wire.Message{
		To:       to,
		Type:     wire.TypeReaction,
		Reaction: &wire.Reaction{MessageID: messageID, Emoji: emoji},
	})
}

// SendLocation sends a geographic point with optional labeling.
func (c *Client) SendLocation(ctx context.Context, to string, loc *wire.Location) (*wire.SendResponse, error) {
	return c.SendMessage(ctx, &wire.Message{To: to, Type: wire.TypeLocation, Location: loc})
}

// SendTemplate sends a pre-approved message template.
func (c *Client) SendTemplate(ctx context.Context, to string, tpl *wire.Template) (*wire.SendResponse, error) {
	return c.SendMessage(ctx, &wire.Message{To: to, Type: wire.TypeTemplate, Template: tpl})
}

// SendInteractive sends a button- or list-style interactive message.
func (c *Client) SendInteractive(ctx context.Context, to string, in *wire.Interactive) (*wire.SendResponse, error) {
	return c.SendMessage(ctx, &wire.Message{To: to, Type: wire.TypeInteractive, Interactive: in})
}

// MediaInfo is the Graph API record for an uploaded or received media id.
type MediaInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
}

// GetMediaInfo exchanges a media id (as carried by inbound messages) for a
// short-lived download URL and metadata.
func (c *Client) GetMediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	url := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, mediaID)

	var info MediaInfo
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		return c.getJSON(ctx, url, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadMedia fetches media bytes from a URL returned by GetMediaInfo.
// maxBytes caps the download; zero or negative means no cap.
func (c *Client) DownloadMedia(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: create media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: c.redact(string(body))}
	}

	reader := resp.Body
	if maxBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("client: read media body: %w", err)
		}
		if int64(len(data)) > maxBytes {
			return nil, fmt.Errorf("client: media exceeds %d byte cap", maxBytes)
		}
		return data, nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("client: read media body: %w", err)
	}
	return data, nil
}

// postJSON POSTs payload to url and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("client: create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	return c.doJSON(req, out)
}

// getJSON GETs url and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("client: create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("client: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{StatusCode: resp.StatusCode, Body: c.redact(string(body))}
		var apiErr wire.APIError
		if json.Unmarshal(body, &apiErr) == nil {
			reqErr.Detail = apiErr.Error
		}
		return reqErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: decode API response: %w", err)
	}
	return nil
}

// redact strips the account credential from text destined for errors or
// logs.
func (c *Client) redact(s string) string {
	return redact.String(s, c.cfg.AccessToken)
}
