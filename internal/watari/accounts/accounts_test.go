package accounts_test

import (
	"testing"

	"github.com/ktsujino/watari/common/spec/waconfig"
	"github.com/ktsujino/watari/internal/watari/accounts"
)

// staticProvider serves a fixed configuration snapshot.
type staticProvider struct {
	cfg *waconfig.MultiAccountConfig
}

func (p staticProvider) Config() *waconfig.MultiAccountConfig { return p.cfg }

// mapSettings serves settings from a plain map; missing keys return "".
type mapSettings map[string]string

func (m mapSettings) GetSetting(key string) string { return m[key] }

func newResolver(cfg *waconfig.MultiAccountConfig, env map[string]string) *accounts.Resolver {
	return accounts.NewResolver(staticProvider{cfg: cfg}, mapSettings(env))
}

func boolPtr(b bool) *bool { return &b }

func TestNormalizeAccountID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "default"},
		{"whitespace only", "   \t ", "default"},
		{"literal default", "default", "default"},
		{"cased default", "DEFAULT", "default"},
		{"padded cased default", "  Default  ", "default"},
		{"plain id", "support", "support"},
		{"cased id", "Support", "support"},
		{"padded id", "  Sales-EU  ", "sales-eu"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := accounts.NormalizeAccountID(tc.in)
			if got != tc.want {
				t.Errorf("NormalizeAccountID(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if again := accounts.NormalizeAccountID(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestResolveToken_AccountRecordWins(t *testing.T) {
	cfg := &waconfig.MultiAccountConfig{
		AccessToken: "base-token",
		Accounts: map[string]waconfig.AccountConfig{
			"support": {AccessToken: "support-token"},
		},
	}
	r := newResolver(cfg, map[string]string{
		accounts.SettingAccessToken: "env-token",
	})

	res := r.ResolveToken("support")
	if res.Token != "support-token" || res.Source != accounts.TokenSourceConfig {
		t.Errorf("ResolveToken(support) = %+v", res)
	}
}

func TestResolveToken_NamedAccountNeverFallsBack(t *testing.T) {
	cfg := &waconfig.MultiAccountConfig{
		AccessToken: "base-token",
		Accounts: map[string]waconfig.AccountConfig{
			"support": {PhoneNumberID: "111"},
		},
	}
	r := newResolver(cfg, map[string]string{
		accounts.SettingAccessToken: "env-token",
	})

	res := r.ResolveToken("support")
	if res.Token != "" || res.Source != accounts.TokenSourceNone {
		t.Errorf("named account inherited a fallback token: %+v", res)
	}
}

func TestResolveToken_DefaultFallsBackToBaseThenEnv(t *testing.T) {
	env := map[string]string{accounts.SettingAccessToken: "env-token"}

	r := newResolver(&waconfig.MultiAccountConfig{AccessToken: "base-token"}, env)
	res := r.ResolveToken("default")
	if res.Token != "base-token" || res.Source != accounts.TokenSourceConfig {
		t.Errorf("base fallback = %+v", res)
	}

	r = newResolver(&waconfig.MultiAccountConfig{}, env)
	res = r.ResolveToken("")
	if res.Token != "env-token" || res.Source != accounts.TokenSourceEnv {
		t.Errorf("env fallback = %+v", res)
	}

	r = newResolver(nil, nil)
	res = r.ResolveToken("DEFAULT")
	if res.Token != "" || res.Source != accounts.TokenSourceNone {
		t.Errorf("empty layers = %+v", res)
	}
}

func TestResolveToken_DefaultRecordWinsOverBase(t *testing.T) {
	cfg := &waconfig.MultiAccountConfig{
		AccessToken: "base-token",
		Accounts: map[string]waconfig.AccountConfig{
			"default": {AccessToken: "record-token"},
		},
	}
	r := newResolver(cfg, nil)

	res := r.ResolveToken("default")
	if res.Token != "record-token" || res.Source != accounts.TokenSourceConfig {
		t.Errorf("ResolveToken(default) = %+v", res)
	}
}

func TestResolveToken_WhitespaceTokenIsAbsent(t *testing.T) {
	cfg := &waconfig.MultiAccountConfig{
		AccessToken: "   ",
	}
	r := newResolver(cfg, map[string]string{
		accounts.SettingAccessToken: "  env-token  ",
	})

	res := r.ResolveToken("default")
	if res.Token != "env-token" || res.Source != accounts.TokenSourceEnv {
		t.Errorf("ResolveToken(default) = %+v", res)
	}
}
