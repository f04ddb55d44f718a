package accounts

import (
	"sort"
	"strings"

	"github.com/ktsujino/watari/common/spec/waconfig"
)

// ResolveAccount resolves the raw account id into a full descriptor. The id
// is normalized first, so callers may pass user input verbatim.
//
// Enabled is the conjunction of the root-level flag and the merged
// account-level flag; an absent flag counts as enabled, and either layer can
// force-disable. Configured requires both an access token and a phone number
// id to be present after trimming.
func (r *Resolver) ResolveAccount(rawAccountID string) ResolvedAccount {
	id := NormalizeAccountID(rawAccountID)
	merged := r.MergeAccountConfig(id)
	token := r.ResolveToken(id)

	multi := r.multiConfig()
	enabled := boolOrTrue(multi.Enabled) && boolOrTrue(merged.Enabled)

	phoneNumberID := strings.TrimSpace(merged.PhoneNumberID)

	return ResolvedAccount{
		AccountID:         id,
		Enabled:           enabled,
		Name:              strings.TrimSpace(merged.Name),
		AccessToken:       token.Token,
		PhoneNumberID:     phoneNumberID,
		BusinessAccountID: strings.TrimSpace(merged.BusinessAccountID),
		TokenSource:       token.Source,
		Configured:        token.Token != "" && phoneNumberID != "",
		Config:            merged,
	}
}

// ListAccountIDs returns the sorted canonical ids of every addressable
// account.
//
// The default account is listed only when the base document or the
// environment supplies a complete credential pair (token and phone number
// id); explicit account records are listed regardless of their own
// completeness, since a record's existence is an intent to address it.
// Records with blank keys are skipped. A configuration that yields nothing
// still lists the default account so every caller has a resolvable target.
func (r *Resolver) ListAccountIDs() []string {
	multi := r.multiConfig()
	seen := make(map[string]struct{})

	baseToken := strings.TrimSpace(multi.AccessToken)
	basePhone := strings.TrimSpace(multi.PhoneNumberID)
	if baseToken != "" && basePhone != "" {
		seen[DefaultAccountID] = struct{}{}
	}
	if r.setting(SettingAccessToken) != "" && r.setting(SettingPhoneNumberID) != "" {
		seen[DefaultAccountID] = struct{}{}
	}

	for key := range multi.Accounts {
		if strings.TrimSpace(key) == "" {
			continue
		}
		seen[NormalizeAccountID(key)] = struct{}{}
	}

	if len(seen) == 0 {
		return []string{DefaultAccountID}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveDefaultAccountID returns the id of the account the service should
// use when no explicit account is named: the default account when it is
// listed, otherwise the first listed account.
func (r *Resolver) ResolveDefaultAccountID() string {
	ids := r.ListAccountIDs()
	for _, id := range ids {
		if id == DefaultAccountID {
			return DefaultAccountID
		}
	}
	return ids[0]
}

// ListEnabledAccounts resolves every listed account and returns those that
// are both enabled and configured, in listing order.
func (r *Resolver) ListEnabledAccounts() []ResolvedAccount {
	var out []ResolvedAccount
	for _, id := range r.ListAccountIDs() {
		acct := r.ResolveAccount(id)
		if acct.Enabled && acct.Configured {
			out = append(out, acct)
		}
	}
	return out
}

// IsMultiAccountEnabled reports whether more than one account is enabled and
// configured.
func (r *Resolver) IsMultiAccountEnabled() bool {
	return len(r.ListEnabledAccounts()) > 1
}

// ResolveAccountByPhoneNumberID finds the enabled account whose resolved
// phone number id matches the given routing id, as carried by webhook
// delivery metadata. The second return is false when no account matches.
func (r *Resolver) ResolveAccountByPhoneNumberID(phoneNumberID string) (ResolvedAccount, bool) {
	want := strings.TrimSpace(phoneNumberID)
	if want == "" {
		return ResolvedAccount{}, false
	}
	for _, id := range r.ListAccountIDs() {
		acct := r.ResolveAccount(id)
		if acct.Enabled && acct.PhoneNumberID == want {
			return acct, true
		}
	}
	return ResolvedAccount{}, false
}

// ResolveGroupConfig returns the per-group override for the given group id
// under the given account, or nil when neither table has one.
//
// Group ids are opaque: they are matched verbatim against the account
// record's group table first, then against the root-level table. The two
// lookups are independent; a group present in both tables takes the account
// record's entry without field-level merging.
func (r *Resolver) ResolveGroupConfig(accountID, groupID string) *waconfig.GroupConfig {
	if groupID == "" {
		return nil
	}

	id := NormalizeAccountID(accountID)
	if acct := r.accountRecord(id); acct != nil && acct.Groups != nil {
		if gc, ok := acct.Groups[groupID]; ok {
			g := gc
			return &g
		}
	}

	multi := r.multiConfig()
	if multi.Groups != nil {
		if gc, ok := multi.Groups[groupID]; ok {
			g := gc
			return &g
		}
	}
	return nil
}

// boolOrTrue reads an optional flag, treating absence as true.
func boolOrTrue(b *bool) bool {
	return b == nil || *b
}
