// Package wire defines the JSON types exchanged with the WhatsApp Cloud API:
// outbound message payloads, send responses, and the inbound webhook event
// envelope. Types mirror the Graph API wire format exactly; no normalization
// happens here.
package wire

// MessageType enumerates the Cloud API message types.
type MessageType string

const (
	TypeText        MessageType = "text"
	TypeImage       MessageType = "image"
	TypeAudio       MessageType = "audio"
	TypeVideo       MessageType = "video"
	TypeDocument    MessageType = "document"
	TypeSticker     MessageType = "sticker"
	TypeLocation    MessageType = "location"
	TypeContacts    MessageType = "contacts"
	TypeTemplate    MessageType = "template"
	TypeInteractive MessageType = "interactive"
	TypeReaction    MessageType = "reaction"
)

// Message is the outbound message payload POSTed to
// /{phone-number-id}/messages. Exactly one content field matching Type is
// populated.
type Message struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type,omitempty"`
	To               string      `json:"to"`
	Type             MessageType `json:"type"`

	Text        *Text        `json:"text,omitempty"`
	Image       *Media       `json:"image,omitempty"`
	Audio       *Media       `json:"audio,omitempty"`
	Video       *Media       `json:"video,omitempty"`
	Document    *Media       `json:"document,omitempty"`
	Sticker     *Media       `json:"sticker,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Template    *Template    `json:"template,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Reaction    *Reaction    `json:"reaction,omitempty"`
}

// Text is the body of a text message.
type Text struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

// Media references uploaded media by id or by public link.
type Media struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
	// Filename applies to document messages only.
	Filename string `json:"filename,omitempty"`
}

// Location carries a geographic point with optional labeling.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Template references a pre-approved message template.
type Template struct {
	Name       string              `json:"name"`
	Language   TemplateLanguage    `json:"language"`
	Components []TemplateComponent `json:"components,omitempty"`
}

// TemplateLanguage selects the template translation.
type TemplateLanguage struct {
	Code string `json:"code"`
}

// TemplateComponent fills one slot of a template (header, body, button).
type TemplateComponent struct {
	Type       string           `json:"type"`
	Parameters []map[string]any `json:"parameters,omitempty"`
}

// Interactive carries list- and button-style interactive messages.
type Interactive struct {
	Type   string             `json:"type"`
	Header *InteractiveHeader `json:"header,omitempty"`
	Body   InteractiveBody    `json:"body"`
	Footer *InteractiveBody   `json:"footer,omitempty"`
	Action InteractiveAction  `json:"action"`
}

// InteractiveHeader is the optional header of an interactive message.
type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InteractiveBody is a text block inside an interactive message.
type InteractiveBody struct {
	Text string `json:"text"`
}

// InteractiveAction holds the buttons or list sections of an interactive
// message.
type InteractiveAction struct {
	Button   string               `json:"button,omitempty"`
	Buttons  []InteractiveButton  `json:"buttons,omitempty"`
	Sections []InteractiveSection `json:"sections,omitempty"`
}

// InteractiveButton is a single reply button.
type InteractiveButton struct {
	Type  string               `json:"type"`
	Reply InteractiveButtonRef `json:"reply"`
}

// InteractiveButtonRef identifies a reply button.
type InteractiveButtonRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// InteractiveSection groups rows of a list message.
type InteractiveSection struct {
	Title string           `json:"title,omitempty"`
	Rows  []InteractiveRow `json:"rows"`
}

// InteractiveRow is one selectable row of a list message.
type InteractiveRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Reaction attaches an emoji to an earlier message. An empty emoji removes
// the reaction.
type Reaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// SendResponse is the Cloud API response to a message send.
type SendResponse struct {
	MessagingProduct string        `json:"messaging_product"`
	Contacts         []SendContact `json:"contacts,omitempty"`
	Messages         []SendResult  `json:"messages,omitempty"`
}

// SendContact echoes the resolved recipient.
type SendContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

// SendResult carries the id assigned to the accepted message.
type SendResult struct {
	ID string `json:"id"`
}

// MessageID returns the id of the first accepted message, or "" when the
// response carries none.
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is the error envelope the Graph API returns on failure.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail describes a single Graph API error.
type APIErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode,omitempty"`
	FBTraceID string `json:"fbtrace_id,omitempty"`
}
