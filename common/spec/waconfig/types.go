// Package waconfig defines types for the layered multi-account WhatsApp
// configuration document.
//
// The document has three override layers: process environment settings, the
// base (root) fields of this document, and per-account records under
// accounts. Per-group records can live both at the root and inside an
// account; the account-level table shadows the root-level one on exact
// group-id match. The account resolver folds the layers together; this
// package only describes the shape and validates it.
package waconfig

import "strings"

// DmPolicy controls who may start a direct-message conversation with an
// account.
type DmPolicy string

// GroupPolicy controls which groups an account engages with.
type GroupPolicy string

const (
	// DmPolicyOpen allows any sender.
	DmPolicyOpen DmPolicy = "open"
	// DmPolicyAllowlist allows only senders on the account DM allowlist.
	DmPolicyAllowlist DmPolicy = "allowlist"
	// DmPolicyPairing allows any sender; identity binding happens in the
	// out-of-band pairing flow.
	DmPolicyPairing DmPolicy = "pairing"
	// DmPolicyDisabled rejects all direct messages.
	DmPolicyDisabled DmPolicy = "disabled"

	// GroupPolicyOpen allows any group.
	GroupPolicyOpen GroupPolicy = "open"
	// GroupPolicyAllowlist allows only allowlisted groups/senders.
	GroupPolicyAllowlist GroupPolicy = "allowlist"
	// GroupPolicyDisabled rejects all group traffic.
	GroupPolicyDisabled GroupPolicy = "disabled"
)

// DefaultDmPolicy applies when no layer supplies a DM policy.
const DefaultDmPolicy = DmPolicyPairing

// DefaultGroupPolicy applies when no layer supplies a group policy.
const DefaultGroupPolicy = GroupPolicyAllowlist

// ParseDmPolicy parses a policy name (trimmed, case-insensitive).
// Unknown names return ("", false); callers treat that as "no value
// supplied" and fall through to the next layer or the default.
func ParseDmPolicy(s string) (DmPolicy, bool) {
	switch DmPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case DmPolicyOpen:
		return DmPolicyOpen, true
	case DmPolicyAllowlist:
		return DmPolicyAllowlist, true
	case DmPolicyPairing:
		return DmPolicyPairing, true
	case DmPolicyDisabled:
		return DmPolicyDisabled, true
	}
	return "", false
}

// ParseGroupPolicy parses a group policy name (trimmed, case-insensitive).
// Unknown names return ("", false).
func ParseGroupPolicy(s string) (GroupPolicy, bool) {
	switch GroupPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case GroupPolicyOpen:
		return GroupPolicyOpen, true
	case GroupPolicyAllowlist:
		return GroupPolicyAllowlist, true
	case GroupPolicyDisabled:
		return GroupPolicyDisabled, true
	}
	return "", false
}

// GroupConfig holds per-group overrides. Group ids are compared verbatim
// (exact match); they are never run through account-id normalization.
type GroupConfig struct {
	// Enabled, when explicitly false, blocks all traffic from this group.
	// Absent counts as enabled.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// AllowFrom lists the senders permitted inside this group. A non-empty
	// list is the sole determinant for sender checks in this group; the
	// account-level group allowlist is not consulted. nil means "no list".
	AllowFrom []string `yaml:"allowFrom,omitempty" json:"allowFrom,omitempty"`

	// RequireMention requires the bot to be mentioned before it responds.
	RequireMention *bool `yaml:"requireMention,omitempty" json:"requireMention,omitempty"`

	// SystemPrompt overrides the prompt for this group. Passed through
	// untouched; the resolution engine attaches no meaning to it.
	SystemPrompt string `yaml:"systemPrompt,omitempty" json:"systemPrompt,omitempty"`

	// Skills restricts the skill set available in this group. Passed through.
	Skills []string `yaml:"skills,omitempty" json:"skills,omitempty"`
}

// AccountConfig holds the per-account override layer, and doubles as the
// shape of a fully merged effective configuration.
//
// Every field is optional. For string fields an empty value counts as
// absent; for lists nil (absent) is distinct from an empty list (present,
// denies everyone under allowlist policy).
type AccountConfig struct {
	// Name is an optional display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Enabled, when explicitly false, prevents this account from running.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// AccessToken is the Cloud API access token for this account.
	AccessToken string `yaml:"accessToken,omitempty" json:"accessToken,omitempty"`

	// PhoneNumberID is the WhatsApp Business phone number id used for routing.
	PhoneNumberID string `yaml:"phoneNumberId,omitempty" json:"phoneNumberId,omitempty"`

	// BusinessAccountID is the WhatsApp Business account id.
	BusinessAccountID string `yaml:"businessAccountId,omitempty" json:"businessAccountId,omitempty"`

	// WebhookVerifyToken is the token echoed during webhook verification.
	WebhookVerifyToken string `yaml:"webhookVerifyToken,omitempty" json:"webhookVerifyToken,omitempty"`

	// APIVersion selects the Graph API version (e.g. "v17.0").
	APIVersion string `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`

	// AllowFrom is the DM sender allowlist. nil means "no list configured".
	AllowFrom []string `yaml:"allowFrom,omitempty" json:"allowFrom,omitempty"`

	// GroupAllowFrom is the account-level group allowlist, consulted for both
	// whole-group admission and per-sender checks when no group-specific
	// allowlist applies.
	GroupAllowFrom []string `yaml:"groupAllowFrom,omitempty" json:"groupAllowFrom,omitempty"`

	// DmPolicy names the direct-message policy. Unknown names degrade to the
	// default at evaluation time rather than failing the request.
	DmPolicy string `yaml:"dmPolicy,omitempty" json:"dmPolicy,omitempty"`

	// GroupPolicy names the group policy.
	GroupPolicy string `yaml:"groupPolicy,omitempty" json:"groupPolicy,omitempty"`

	// MediaMaxMB caps inbound media size in megabytes.
	MediaMaxMB *int `yaml:"mediaMaxMb,omitempty" json:"mediaMaxMb,omitempty"`

	// TextChunkLimit caps outbound text chunk length in characters.
	TextChunkLimit *int `yaml:"textChunkLimit,omitempty" json:"textChunkLimit,omitempty"`

	// Groups maps group id → per-group overrides. When an account supplies
	// this table it replaces (never deep-merges) the root-level table for
	// merge purposes; group lookup still falls back to the root table when
	// the account table has no entry for a given id.
	Groups map[string]GroupConfig `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// MultiAccountConfig is the root of the layered configuration document.
type MultiAccountConfig struct {
	// Enabled, when explicitly false, disables every account regardless of
	// account-level flags. Absent counts as enabled.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// AccessToken is the shared base credential. Only the default account
	// ever falls back to it; named accounts must carry their own.
	AccessToken string `yaml:"accessToken,omitempty" json:"accessToken,omitempty"`

	// PhoneNumberID is the base routing id.
	PhoneNumberID string `yaml:"phoneNumberId,omitempty" json:"phoneNumberId,omitempty"`

	// BusinessAccountID is the base business account id.
	BusinessAccountID string `yaml:"businessAccountId,omitempty" json:"businessAccountId,omitempty"`

	// WebhookVerifyToken is the base webhook verification token.
	WebhookVerifyToken string `yaml:"webhookVerifyToken,omitempty" json:"webhookVerifyToken,omitempty"`

	// APIVersion is the base Graph API version.
	APIVersion string `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`

	// DmPolicy is the base direct-message policy name.
	DmPolicy string `yaml:"dmPolicy,omitempty" json:"dmPolicy,omitempty"`

	// GroupPolicy is the base group policy name.
	GroupPolicy string `yaml:"groupPolicy,omitempty" json:"groupPolicy,omitempty"`

	// MediaMaxMB is the base inbound media size cap in megabytes.
	MediaMaxMB *int `yaml:"mediaMaxMb,omitempty" json:"mediaMaxMb,omitempty"`

	// TextChunkLimit is the base outbound text chunk limit.
	TextChunkLimit *int `yaml:"textChunkLimit,omitempty" json:"textChunkLimit,omitempty"`

	// Accounts maps raw account id → per-account overrides. Keys are
	// normalized before comparison; raw keys are preserved here so the
	// document round-trips unchanged.
	Accounts map[string]AccountConfig `yaml:"accounts,omitempty" json:"accounts,omitempty"`

	// Groups maps group id → per-group overrides applied when no
	// account-level override exists for that id.
	Groups map[string]GroupConfig `yaml:"groups,omitempty" json:"groups,omitempty"`
}
