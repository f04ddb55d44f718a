package wire

import (
	"encoding/json"
	"fmt"
)

// ObjectBusinessAccount is the object value carried by genuine WhatsApp
// Business webhook deliveries; anything else is ignored by the handler.
const ObjectBusinessAccount = "whatsapp_business_account"

// FieldMessages is the change field carrying inbound messages and statuses.
const FieldMessages = "messages"

// WebhookEvent is the top-level envelope POSTed by the Cloud API webhook.
type WebhookEvent struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the changes delivered for one business account.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange is a single field change inside an entry.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue carries the actual payload of a "messages" change.
type WebhookValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         WebhookMetadata   `json:"metadata"`
	Contacts         []WebhookContact  `json:"contacts,omitempty"`
	Messages         []IncomingMessage `json:"messages,omitempty"`
	Statuses         []MessageStatus   `json:"statuses,omitempty"`
}

// WebhookMetadata identifies the receiving phone number. PhoneNumberID is
// the routing key used to resolve which configured account owns the
// conversation.
type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// WebhookContact carries the sender profile attached to a delivery.
type WebhookContact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile is the sender's display profile.
type ContactProfile struct {
	Name string `json:"name"`
}

// IncomingMessage is one inbound message inside a webhook delivery. Exactly
// one content field matching Type is populated.
type IncomingMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text     *IncomingText     `json:"text,omitempty"`
	Image    *IncomingMedia    `json:"image,omitempty"`
	Audio    *IncomingMedia    `json:"audio,omitempty"`
	Video    *IncomingMedia    `json:"video,omitempty"`
	Document *IncomingMedia    `json:"document,omitempty"`
	Sticker  *IncomingMedia    `json:"sticker,omitempty"`
	Location *Location         `json:"location,omitempty"`
	Reaction *Reaction         `json:"reaction,omitempty"`
	Context  *IncomingContext  `json:"context,omitempty"`
	Errors   []APIErrorDetail  `json:"errors,omitempty"`
}

// IncomingText is the body of an inbound text message.
type IncomingText struct {
	Body string `json:"body"`
}

// IncomingMedia references inbound media stored by the Cloud API. The id is
// exchanged for a download URL via the media endpoint.
type IncomingMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// IncomingContext links a message to the one it replies to.
type IncomingContext struct {
	From string `json:"from,omitempty"`
	ID   string `json:"id,omitempty"`
}

// MessageStatus reports the delivery state of an outbound message.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Validate checks that a WebhookEvent is structurally usable.
// It returns a descriptive error if any invariant is violated, or nil if
// the event may be safely dispatched to the message pipeline.
func (e *WebhookEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	if e.Object == "" {
		return fmt.Errorf("object must not be empty")
	}
	for i, entry := range e.Entry {
		for j, ch := range entry.Changes {
			if ch.Field == "" {
				return fmt.Errorf("entry[%d].changes[%d]: field must not be empty", i, j)
			}
		}
	}
	return nil
}

// ParseWebhookEvent decodes a JSON-encoded webhook delivery and validates it.
// It is the canonical entry point for deserialising inbound webhook bodies.
func ParseWebhookEvent(data []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("wire parse: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("wire validate: %w", err)
	}
	return &evt, nil
}
