// Package webhook implements the inbound WhatsApp Cloud API webhook endpoint.
//
// Meta calls the endpoint two ways:
//
//	GET  /webhooks/whatsapp   subscription verification (hub.challenge echo)
//	POST /webhooks/whatsapp   signed event deliveries
//
// GET requests are answered when hub.verify_token matches the verify token of
// any enabled account. POST bodies are authenticated against the app secret
// via the X-Hub-Signature-256 header (HMAC-SHA256), rate-limited per
// receiving phone number, parsed, and handed to the dispatcher. Deliveries
// are acknowledged with 200 even when individual messages are dropped by
// policy; anything else makes Meta retry and eventually disable the
// subscription.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ktsujino/watari/common/spec/wire"
	"github.com/ktsujino/watari/internal/watari/accounts"
)

// DefaultRateLimit is the default maximum number of deliveries per receiving
// phone number per minute when no explicit limit is configured.
const DefaultRateLimit = 600

// maxBodyBytes caps inbound webhook request bodies to prevent memory
// exhaustion from oversized payloads.
const maxBodyBytes = 1 * 1024 * 1024 // 1 MiB

// Path is the route the handler mounts on.
const Path = "/webhooks/whatsapp"

// accountSource is the minimal interface the handler needs from the account
// resolver.
type accountSource interface {
	ListEnabledAccounts() []accounts.ResolvedAccount
}

// Dispatcher receives the payload of each "messages" change in a delivery.
// Implementations must not block on slow downstream work; Meta expects the
// endpoint to acknowledge within seconds.
type Dispatcher interface {
	HandleChange(ctx context.Context, value *wire.WebhookValue)
}

// Config holds options for creating a Handler.
type Config struct {
	// AppSecret is the Meta app secret used to validate X-Hub-Signature-256.
	// When empty, signature validation is skipped (local development only).
	AppSecret string

	// RateLimit is the maximum number of deliveries allowed per phone number
	// per minute. Defaults to DefaultRateLimit when zero or negative.
	RateLimit int
}

// Handler serves the WhatsApp webhook endpoint.
type Handler struct {
	source     accountSource
	dispatcher Dispatcher
	limiter    *rateLimiter
	appSecret  string
	log        *slog.Logger
}

// New creates a Handler backed by the given account source and dispatcher.
func New(source accountSource, dispatcher Dispatcher, cfg Config, log *slog.Logger) *Handler {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		source:     source,
		dispatcher: dispatcher,
		limiter:    newRateLimiter(limit, time.Minute),
		appSecret:  cfg.AppSecret,
		log:        log,
	}
}

// RouteRegistrar is satisfied by *http.ServeMux, allowing the Handler to
// register its routes without importing the app package directly.
type RouteRegistrar interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterRoutes mounts the webhook handler on the given registrar.
func (h *Handler) RegisterRoutes(r RouteRegistrar) {
	r.Handle(Path, http.HandlerFunc(h.ServeHTTP))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerification(w, r)
	case http.MethodPost:
		h.handleDelivery(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerification answers Meta's subscription handshake: when the supplied
// verify token matches any enabled account's configured token, the challenge
// is echoed back verbatim.
func (h *Handler) handleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token == "" || challenge == "" {
		http.Error(w, "bad verification request", http.StatusBadRequest)
		return
	}

	if !h.verifyTokenMatches(token) {
		h.log.Info("webhook: verification token mismatch")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	h.log.Info("webhook: subscription verified")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

func (h *Handler) verifyTokenMatches(token string) bool {
	for _, acct := range h.source.ListEnabledAccounts() {
		want := strings.TrimSpace(acct.Config.WebhookVerifyToken)
		if want != "" && hmac.Equal([]byte(want), []byte(token)) {
			return true
		}
	}
	return false
}

// handleDelivery authenticates, parses, and dispatches a POSTed event.
func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.log.Warn("webhook: failed to read request body", "err", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		if err := validateSignature(r.Header.Get("X-Hub-Signature-256"), body, h.appSecret); err != nil {
			h.log.Info("webhook: signature validation failed", "err", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	evt, err := wire.ParseWebhookEvent(body)
	if err != nil {
		h.log.Warn("webhook: unparseable delivery", "err", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Deliveries for other webhook objects are acknowledged and ignored.
	if evt.Object != wire.ObjectBusinessAccount {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	for i := range evt.Entry {
		for j := range evt.Entry[i].Changes {
			ch := &evt.Entry[i].Changes[j]
			if ch.Field != wire.FieldMessages {
				continue
			}

			phoneNumberID := ch.Value.Metadata.PhoneNumberID
			if !h.limiter.Allow(phoneNumberID) {
				h.log.Info("webhook: rate limit exceeded", "phone_number_id", phoneNumberID)
				continue
			}

			h.dispatcher.HandleChange(ctx, &ch.Value)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// validateSignature checks that sigHeader is a valid HMAC-SHA256 of body
// under secret, in Meta's "sha256=<hex>" header format.
func validateSignature(sigHeader string, body []byte, secret string) error {
	if sigHeader == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}
	const prefix = "sha256="
	if !strings.HasPrefix(sigHeader, prefix) {
		return fmt.Errorf("X-Hub-Signature-256 must start with %q", prefix)
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(sigHeader, prefix))
	if err != nil {
		return fmt.Errorf("invalid hex in X-Hub-Signature-256: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return fmt.Errorf("HMAC signature mismatch")
	}
	return nil
}
