package accounts

import "strings"

// ResolveToken resolves the access token for the given account id, together
// with the layer that supplied it.
//
// Precedence is deliberately narrower than the full config merge: an
// account's own record always wins, but the base-document and environment
// fallbacks apply to the default account ONLY. A named account with no token
// in its record resolves to none; it never silently inherits the default
// identity's credential.
func (r *Resolver) ResolveToken(accountID string) TokenResolution {
	id := NormalizeAccountID(accountID)

	if acct := r.accountRecord(id); acct != nil {
		if token := strings.TrimSpace(acct.AccessToken); token != "" {
			return TokenResolution{Token: token, Source: TokenSourceConfig}
		}
	}

	if id == DefaultAccountID {
		if token := strings.TrimSpace(r.multiConfig().AccessToken); token != "" {
			return TokenResolution{Token: token, Source: TokenSourceConfig}
		}
		if token := r.setting(SettingAccessToken); token != "" {
			return TokenResolution{Token: token, Source: TokenSourceEnv}
		}
	}

	return TokenResolution{Source: TokenSourceNone}
}
