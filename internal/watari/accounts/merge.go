package accounts

import (
	"strings"

	"github.com/ktsujino/watari/common/spec/waconfig"
)

// MergeAccountConfig folds the three configuration layers for the given
// canonical account id into one effective configuration.
//
// Layers apply in order environment, then base, then account, each
// overwriting only the fields it explicitly supplies. There is no "unset"
// operation: once a layer supplies a value it is either kept or replaced by
// a more specific layer's explicit value. Token fallback does NOT follow
// this merge; ResolveToken applies its own, narrower precedence.
func (r *Resolver) MergeAccountConfig(accountID string) waconfig.AccountConfig {
	var merged waconfig.AccountConfig
	r.applyEnvLayer(&merged)
	applyBaseLayer(&merged, r.multiConfig())
	if acct := r.accountRecord(accountID); acct != nil {
		applyAccountLayer(&merged, acct)
	}
	return merged
}

// applyEnvLayer writes the environment-supplied scalars into dst. The
// environment supplies no display name, no allowlists, and no group table.
// Values blank after trimming are skipped; policy names that do not parse
// are treated as not supplied so misconfiguration degrades to the defaults
// instead of failing request handling.
func (r *Resolver) applyEnvLayer(dst *waconfig.AccountConfig) {
	if v := r.setting(SettingAccessToken); v != "" {
		dst.AccessToken = v
	}
	if v := r.setting(SettingPhoneNumberID); v != "" {
		dst.PhoneNumberID = v
	}
	if v := r.setting(SettingBusinessAccountID); v != "" {
		dst.BusinessAccountID = v
	}
	if v := r.setting(SettingWebhookVerifyToken); v != "" {
		dst.WebhookVerifyToken = v
	}
	if p, ok := waconfig.ParseDmPolicy(r.setting(SettingDmPolicy)); ok {
		dst.DmPolicy = string(p)
	}
	if p, ok := waconfig.ParseGroupPolicy(r.setting(SettingGroupPolicy)); ok {
		dst.GroupPolicy = string(p)
	}
}

// applyBaseLayer overlays the base (root) fields of the document. The base
// carries no display name and no allowlists; its group table is carried so
// a merged config exposes root-level group overrides when the account
// supplies none.
func applyBaseLayer(dst *waconfig.AccountConfig, base *waconfig.MultiAccountConfig) {
	if base.Enabled != nil {
		dst.Enabled = base.Enabled
	}
	if s := strings.TrimSpace(base.AccessToken); s != "" {
		dst.AccessToken = s
	}
	if s := strings.TrimSpace(base.PhoneNumberID); s != "" {
		dst.PhoneNumberID = s
	}
	if s := strings.TrimSpace(base.BusinessAccountID); s != "" {
		dst.BusinessAccountID = s
	}
	if s := strings.TrimSpace(base.WebhookVerifyToken); s != "" {
		dst.WebhookVerifyToken = s
	}
	if s := strings.TrimSpace(base.APIVersion); s != "" {
		dst.APIVersion = s
	}
	if s := strings.TrimSpace(base.DmPolicy); s != "" {
		dst.DmPolicy = s
	}
	if s := strings.TrimSpace(base.GroupPolicy); s != "" {
		dst.GroupPolicy = s
	}
	if base.MediaMaxMB != nil {
		dst.MediaMaxMB = base.MediaMaxMB
	}
	if base.TextChunkLimit != nil {
		dst.TextChunkLimit = base.TextChunkLimit
	}
	if base.Groups != nil {
		dst.Groups = base.Groups
	}
}

// applyAccountLayer overlays the per-account override record. This is the
// only layer that can supply a display name, allowlists, and a per-account
// group table. A supplied group table replaces the base-level one wholesale;
// per-group fallback is handled by ResolveGroupConfig as two independent
// lookups, never as a map merge.
func applyAccountLayer(dst *waconfig.AccountConfig, acct *waconfig.AccountConfig) {
	if s := strings.TrimSpace(acct.Name); s != "" {
		dst.Name = s
	}
	if acct.Enabled != nil {
		dst.Enabled = acct.Enabled
	}
	if s := strings.TrimSpace(acct.AccessToken); s != "" {
		dst.AccessToken = s
	}
	if s := strings.TrimSpace(acct.PhoneNumberID); s != "" {
		dst.PhoneNumberID = s
	}
	if s := strings.TrimSpace(acct.BusinessAccountID); s != "" {
		dst.BusinessAccountID = s
	}
	if s := strings.TrimSpace(acct.WebhookVerifyToken); s != "" {
		dst.WebhookVerifyToken = s
	}
	if s := strings.TrimSpace(acct.APIVersion); s != "" {
		dst.APIVersion = s
	}
	if acct.AllowFrom != nil {
		dst.AllowFrom = acct.AllowFrom
	}
	if acct.GroupAllowFrom != nil {
		dst.GroupAllowFrom = acct.GroupAllowFrom
	}
	if s := strings.TrimSpace(acct.DmPolicy); s != "" {
		dst.DmPolicy = s
	}
	if s := strings.TrimSpace(acct.GroupPolicy); s != "" {
		dst.GroupPolicy = s
	}
	if acct.MediaMaxMB != nil {
		dst.MediaMaxMB = acct.MediaMaxMB
	}
	if acct.TextChunkLimit != nil {
		dst.TextChunkLimit = acct.TextChunkLimit
	}
	if acct.Groups != nil {
		dst.Groups = acct.Groups
	}
}
