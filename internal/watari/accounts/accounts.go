// Package accounts resolves which configured WhatsApp account handles a
// conversation, and with which credentials.
//
// Resolution folds three configuration layers (process environment, the
// base fields of the multi-account document, and the per-account override
// record) into one effective account configuration, then derives the
// credential, routing id, and enabled/configured state from it. Every
// operation is a pure function over the current configuration snapshot; the
// resolver holds no mutable state of its own and is safe for concurrent use.
package accounts

import (
	"strings"

	"github.com/ktsujino/watari/common/spec/waconfig"
)

// DefaultAccountID is the canonical id of the default account: the
// distinguished fallback identity used when no explicit account is named.
const DefaultAccountID = "default"

// Environment setting keys consumed by the resolver. Names are
// case-sensitive and looked up exactly as written.
const (
	SettingAccessToken        = "WHATSAPP_ACCESS_TOKEN"
	SettingPhoneNumberID      = "WHATSAPP_PHONE_NUMBER_ID"
	SettingBusinessAccountID  = "WHATSAPP_BUSINESS_ACCOUNT_ID"
	SettingWebhookVerifyToken = "WHATSAPP_WEBHOOK_VERIFY_TOKEN"
	SettingDmPolicy           = "WHATSAPP_DM_POLICY"
	SettingGroupPolicy        = "WHATSAPP_GROUP_POLICY"
)

// TokenSource indicates which configuration layer a resolved access token
// came from.
type TokenSource string

const (
	// TokenSourceConfig means the token came from the layered document
	// (account record or, for the default account, the base fields).
	TokenSourceConfig TokenSource = "config"
	// TokenSourceEnv means the token came from environment settings.
	TokenSourceEnv TokenSource = "env"
	// TokenSourceCharacter is reserved for host-runtime character settings.
	// No current flow produces it; the case exists to keep the provenance
	// taxonomy stable for hosts that add such a layer.
	TokenSourceCharacter TokenSource = "character"
	// TokenSourceNone means no layer supplied a token.
	TokenSourceNone TokenSource = "none"
)

// TokenResolution is the outcome of access-token resolution. Token is empty
// when Source is TokenSourceNone.
type TokenResolution struct {
	Token  string
	Source TokenSource
}

// ResolvedAccount is a fully resolved account descriptor, recomputed on
// every call and never persisted.
type ResolvedAccount struct {
	// AccountID is the canonical (normalized) account id.
	AccountID string
	// Enabled is the conjunction of the root-level and merged account-level
	// enabled flags; either layer can force-disable.
	Enabled bool
	// Name is the trimmed display name; empty when no layer supplied one.
	Name string
	// AccessToken is the resolved credential; empty when unconfigured.
	AccessToken string
	// PhoneNumberID is the trimmed routing id; empty when unconfigured.
	PhoneNumberID string
	// BusinessAccountID is the trimmed business account id, or empty.
	BusinessAccountID string
	// TokenSource records which layer supplied AccessToken.
	TokenSource TokenSource
	// Configured is true iff both AccessToken and PhoneNumberID are
	// non-empty after trimming.
	Configured bool
	// Config is the merged effective configuration the account was derived
	// from; policy evaluation reads allowlists and policies off it.
	Config waconfig.AccountConfig
}

// Settings is the narrow host-runtime boundary for single-key setting
// lookups. Implementations return "" for unset keys; lookups are treated
// as synchronous, instantaneous reads.
type Settings interface {
	GetSetting(key string) string
}

// Provider returns the currently active multi-account configuration, or nil
// when none is configured (treated identically to an all-default document).
type Provider interface {
	Config() *waconfig.MultiAccountConfig
}

// NormalizeAccountID canonicalizes a raw account id. Empty, whitespace-only,
// and case-insensitive "default" inputs all collapse to DefaultAccountID;
// anything else is trimmed and lower-cased. The function is total and
// idempotent: the canonical form is the only form ever used as a map key or
// compared for equality.
func NormalizeAccountID(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == DefaultAccountID {
		return DefaultAccountID
	}
	return trimmed
}

// Resolver derives ready-to-use account descriptors from the current
// configuration snapshot and environment settings.
type Resolver struct {
	provider Provider
	settings Settings
}

// NewResolver returns a Resolver reading from the given config provider and
// settings source.
func NewResolver(provider Provider, settings Settings) *Resolver {
	return &Resolver{provider: provider, settings: settings}
}

// emptyMulti is the all-default document used when no config is present.
var emptyMulti waconfig.MultiAccountConfig

// multiConfig returns the current document snapshot, substituting an
// all-default document when the provider has none.
func (r *Resolver) multiConfig() *waconfig.MultiAccountConfig {
	if r.provider != nil {
		if cfg := r.provider.Config(); cfg != nil {
			return cfg
		}
	}
	return &emptyMulti
}

// setting returns the trimmed environment setting for key, or "".
func (r *Resolver) setting(key string) string {
	if r.settings == nil {
		return ""
	}
	return strings.TrimSpace(r.settings.GetSetting(key))
}

// accountRecord returns the override record for the given canonical id, or
// nil when the document has none. Raw document keys are matched directly
// first, then by normalized form, so "Support" and "support" address the
// same record.
func (r *Resolver) accountRecord(accountID string) *waconfig.AccountConfig {
	multi := r.multiConfig()
	if len(multi.Accounts) == 0 {
		return nil
	}

	if acct, ok := multi.Accounts[accountID]; ok {
		return &acct
	}

	normalized := NormalizeAccountID(accountID)
	for key, acct := range multi.Accounts {
		if NormalizeAccountID(key) == normalized {
			a := acct
			return &a
		}
	}
	return nil
}
