// Package service implements the Watari message pipeline: webhook deliveries
// in, policy-gated conversational replies out.
//
// For every inbound message the pipeline resolves the owning account from
// the delivery's phone number id, deduplicates redelivered events, applies
// the access policy (group admission, sender allowlists, mention
// requirement), records chat state, runs the pairing flow when the account
// asks for it, and hands allowed text to the responder. Replies are chunked
// to the account's text limit before sending.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ktsujino/watari/common/spec/waconfig"
	"github.com/ktsujino/watari/common/spec/wire"
	"github.com/ktsujino/watari/common/trace"
	"github.com/ktsujino/watari/internal/watari/accounts"
	"github.com/ktsujino/watari/internal/watari/chatstate"
	"github.com/ktsujino/watari/internal/watari/client"
	"github.com/ktsujino/watari/internal/watari/normalize"
	"github.com/ktsujino/watari/internal/watari/observability"
	"github.com/ktsujino/watari/internal/watari/pairing"
	"github.com/ktsujino/watari/internal/watari/policy"
)

// Request is one allowed inbound text handed to the responder.
type Request struct {
	AccountID   string
	ChatID      string
	SenderID    string
	SenderName  string
	ChatType    normalize.ChatType
	Text        string
	ChatContext string
}

// Responder produces the reply text for an inbound message. The
// conversational engine lives outside this repository; an empty reply means
// "stay silent".
type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// Sender is the outbound surface the pipeline needs per account.
type Sender interface {
	SendText(ctx context.Context, to, body string) (*wire.SendResponse, error)
	SendReaction(ctx context.Context, to, messageID, emoji string) (*wire.SendResponse, error)
	SendMedia(ctx context.Context, to string, mediaType wire.MessageType, media *wire.Media) (*wire.SendResponse, error)
	SendLocation(ctx context.Context, to string, loc *wire.Location) (*wire.SendResponse, error)
	SendInteractive(ctx context.Context, to string, in *wire.Interactive) (*wire.SendResponse, error)
}

// SenderFactory builds the outbound client for a resolved account. Tests
// substitute a fake; production uses NewSenderFactory.
type SenderFactory func(acct accounts.ResolvedAccount) Sender

// NewSenderFactory returns the production factory building Cloud API clients.
// baseURL overrides the Graph endpoint when non-empty.
func NewSenderFactory(baseURL string, log *slog.Logger) SenderFactory {
	return func(acct accounts.ResolvedAccount) Sender {
		return client.New(client.Config{
			AccessToken:   acct.AccessToken,
			PhoneNumberID: acct.PhoneNumberID,
			BaseURL:       baseURL,
			APIVersion:    acct.Config.APIVersion,
		}, log)
	}
}

// Deduper filters redelivered webhook messages.
type Deduper interface {
	MarkMessageProcessed(ctx context.Context, messageID string) (bool, error)
}

// Pairer is the slice of the pairing manager the pipeline uses.
type Pairer interface {
	Redeem(ctx context.Context, code, accountID, waID string) error
}

// Service is the message pipeline. It implements webhook.Dispatcher.
type Service struct {
	resolver  *accounts.Resolver
	dedup     Deduper
	tracker   *chatstate.Tracker
	pairer    Pairer
	responder Responder
	factory   SenderFactory
	log       *slog.Logger

	mu      sync.Mutex
	senders map[string]Sender
}

// New wires a Service. responder and pairer may be nil: without a responder
// the pipeline records traffic but never replies; without a pairer the
// pairing policy degrades to plain allow.
func New(resolver *accounts.Resolver, dedup Deduper, tracker *chatstate.Tracker, pairer Pairer, responder Responder, factory SenderFactory, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver:  resolver,
		dedup:     dedup,
		tracker:   tracker,
		pairer:    pairer,
		responder: responder,
		factory:   factory,
		log:       log,
		senders:   make(map[string]Sender),
	}
}

// sender returns the cached outbound client for the account, building it on
// first use. The cache is keyed by account id and token so credential
// rotation produces a fresh client.
func (s *Service) sender(acct accounts.ResolvedAccount) Sender {
	key := acct.AccountID + "\x00" + acct.AccessToken
	s.mu.Lock()
	defer s.mu.Unlock()
	if snd, ok := s.senders[key]; ok {
		return snd
	}
	snd := s.factory(acct)
	s.senders[key] = snd
	return snd
}

// HandleChange processes the payload of one "messages" webhook change.
func (s *Service) HandleChange(ctx context.Context, value *wire.WebhookValue) {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := observability.WithDelivery(ctx)

	acct, ok := s.resolver.ResolveAccountByPhoneNumberID(value.Metadata.PhoneNumberID)
	if !ok {
		log.Info("delivery for unknown phone number id dropped",
			"phone_number_id", value.Metadata.PhoneNumberID)
		return
	}
	if !acct.Configured {
		log.Warn("delivery for unconfigured account dropped", "account_id", acct.AccountID)
		return
	}

	contacts := make(map[string]*wire.WebhookContact, len(value.Contacts))
	for i := range value.Contacts {
		contacts[value.Contacts[i].WaID] = &value.Contacts[i]
	}

	for i := range value.Messages {
		s.handleMessage(ctx, log, acct, &value.Messages[i], contacts, value.Metadata.PhoneNumberID)
	}

	for _, st := range value.Statuses {
		log.Debug("message status update",
			"message_id", st.ID, "status", st.Status, "recipient", st.RecipientID)
	}
}

func (s *Service) handleMessage(ctx context.Context, log *slog.Logger, acct accounts.ResolvedAccount, msg *wire.IncomingMessage, contacts map[string]*wire.WebhookContact, phoneNumberID string) {
	log = log.With("account_id", acct.AccountID, "message_id", msg.ID, "from", msg.From, "type", msg.Type)

	if s.dedup != nil && msg.ID != "" {
		first, err := s.dedup.MarkMessageProcessed(ctx, msg.ID)
		if err != nil {
			log.Error("dedup check failed", "err", err)
			return
		}
		if !first {
			log.Debug("duplicate delivery skipped")
			return
		}
	}

	chatID := msg.From
	if normalized, ok := normalize.Target(msg.From); ok {
		chatID = normalized
	}
	chatType := normalize.ChatTypeOf(chatID)
	isGroup := chatType == normalize.ChatTypeGroup

	groupCfg := s.resolver.ResolveGroupConfig(acct.AccountID, chatID)

	if isGroup {
		if res := policy.EvaluateGroup(chatID, acct.Config, groupCfg); !res.Allowed() {
			log.Info("group rejected", "rule", res.Rule, "reason", res.Reason)
			return
		}
	}

	if res := policy.EvaluateUser(msg.From, acct.Config, isGroup, groupCfg); !res.Allowed() {
		log.Info("sender rejected", "rule", res.Rule, "reason", res.Reason)
		return
	}

	contact := contacts[msg.From]
	if err := s.tracker.Record(ctx, acct.AccountID, chatID, phoneNumberID, msg, contact); err != nil {
		log.Warn("chat state update failed", "err", err)
	}

	if msg.Text == nil {
		log.Info("non-text message received; no reply")
		return
	}
	text := strings.TrimSpace(msg.Text.Body)
	if text == "" {
		return
	}

	if !isGroup && s.handlePairing(ctx, log, acct, msg.From, chatID, text) {
		return
	}

	if isGroup && policy.IsMentionRequired(acct.Config, groupCfg) && !mentions(text, acct) {
		log.Debug("group message without required mention skipped")
		return
	}

	if s.responder == nil {
		return
	}

	var senderName string
	if contact != nil {
		senderName = contact.Profile.Name
	}

	req := Request{
		AccountID:   acct.AccountID,
		ChatID:      chatID,
		SenderID:    msg.From,
		SenderName:  senderName,
		ChatType:    chatType,
		Text:        text,
		ChatContext: s.tracker.Context(ctx, acct.AccountID, chatID),
	}

	reply, err := s.responder.Respond(ctx, req)
	if err != nil {
		log.Error("responder failed", "err", err)
		return
	}
	if strings.TrimSpace(reply) == "" {
		return
	}

	s.reply(ctx, log, acct, chatID, reply)
}

// handlePairing runs the pairing flow for DM traffic under the pairing
// policy. It returns true when the message was consumed as a pairing code.
func (s *Service) handlePairing(ctx context.Context, log *slog.Logger, acct accounts.ResolvedAccount, senderID, chatID, text string) bool {
	if s.pairer == nil {
		return false
	}
	effective, ok := waconfig.ParseDmPolicy(acct.Config.DmPolicy)
	if !ok {
		effective = waconfig.DefaultDmPolicy
	}
	if effective != waconfig.DmPolicyPairing {
		return false
	}

	// Pairing codes are UUIDs; anything else flows through as a normal
	// message.
	code := strings.TrimSpace(text)
	if _, err := uuid.Parse(code); err != nil {
		return false
	}

	var reply string
	switch err := s.pairer.Redeem(ctx, code, acct.AccountID, senderID); {
	case err == nil:
		reply = "You're paired. This number is now linked to your account."
	case errors.Is(err, pairing.ErrExpired):
		reply = "That pairing code has expired. Please request a new one."
	case errors.Is(err, pairing.ErrAlreadyUsed):
		reply = "That pairing code was already used."
	default:
		log.Info("pairing redemption failed", "err", err)
		reply = "That pairing code isn't valid."
	}

	s.reply(ctx, log, acct, chatID, reply)
	return true
}

// reply chunks and sends a text reply using the account's configured chunk
// limit.
func (s *Service) reply(ctx context.Context, log *slog.Logger, acct accounts.ResolvedAccount, chatID, text string) {
	limit := normalize.TextChunkLimit
	if acct.Config.TextChunkLimit != nil && *acct.Config.TextChunkLimit > 0 {
		limit = *acct.Config.TextChunkLimit
	}

	snd := s.sender(acct)
	for _, chunk := range normalize.ChunkText(text, limit) {
		if _, err := snd.SendText(ctx, chatID, chunk); err != nil {
			log.Error("reply send failed", "to", chatID, "err", err)
			return
		}
	}
}

// mentions reports whether the text addresses the account by display name or
// sending number. Accounts without either never require a mention match.
func mentions(text string, acct accounts.ResolvedAccount) bool {
	lower := strings.ToLower(text)
	if acct.Name != "" && strings.Contains(lower, "@"+strings.ToLower(acct.Name)) {
		return true
	}
	if acct.PhoneNumberID != "" && strings.Contains(lower, "@"+acct.PhoneNumberID) {
		return true
	}
	return acct.Name == "" && acct.PhoneNumberID == ""
}
