package policy_test

import (
	"testing"

	"github.com/ktsujino/watari/common/spec/waconfig"
	"github.com/ktsujino/watari/internal/watari/policy"
)

func boolPtr(b bool) *bool { return &b }

func TestEvaluateUser_DirectMessage(t *testing.T) {
	tests := []struct {
		name      string
		account   waconfig.AccountConfig
		sender    string
		wantAllow bool
	}{
		{"default policy is pairing and allows", waconfig.AccountConfig{}, "16505551234", true},
		{"open allows anyone", waconfig.AccountConfig{DmPolicy: "open"}, "16505551234", true},
		{"pairing allows anyone", waconfig.AccountConfig{DmPolicy: "pairing"}, "16505551234", true},
		{"disabled denies everyone", waconfig.AccountConfig{DmPolicy: "disabled"}, "16505551234", false},
		{"allowlist member", waconfig.AccountConfig{DmPolicy: "allowlist", AllowFrom: []string{"16505551234"}}, "16505551234", true},
		{"allowlist non-member", waconfig.AccountConfig{DmPolicy: "allowlist", AllowFrom: []string{"16505551234"}}, "19995550000", false},
		{"allowlist with no list fails closed", waconfig.AccountConfig{DmPolicy: "allowlist"}, "16505551234", false},
		{"allowlist with empty list fails closed", waconfig.AccountConfig{DmPolicy: "allowlist", AllowFrom: []string{}}, "16505551234", false},
		{"unknown policy name degrades to pairing", waconfig.AccountConfig{DmPolicy: "everyone"}, "16505551234", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.IsUserAllowed(tt.sender, tt.account, false, nil)
			if got != tt.wantAllow {
				t.Errorf("IsUserAllowed = %v, want %v", got, tt.wantAllow)
			}
		})
	}
}

func TestEvaluateUser_GroupMessage(t *testing.T) {
	accountList := waconfig.AccountConfig{
		GroupPolicy:    "allowlist",
		GroupAllowFrom: []string{"16505551234"},
	}

	tests := []struct {
		name      string
		account   waconfig.AccountConfig
		group     *waconfig.GroupConfig
		sender    string
		wantAllow bool
	}{
		{"disabled denies", waconfig.AccountConfig{GroupPolicy: "disabled"}, nil, "16505551234", false},
		{"open allows", waconfig.AccountConfig{GroupPolicy: "open"}, nil, "19995550000", true},
		{"account allowlist member", accountList, nil, "16505551234", true},
		{"account allowlist non-member", accountList, nil, "19995550000", false},
		{"default policy is allowlist and fails closed", waconfig.AccountConfig{}, nil, "16505551234", false},
		{
			"group allowlist member",
			accountList,
			&waconfig.GroupConfig{AllowFrom: []string{"19995550000"}},
			"19995550000",
			true,
		},
		{
			"group allowlist shadows account allowlist",
			accountList,
			&waconfig.GroupConfig{AllowFrom: []string{"19995550000"}},
			"16505551234",
			false,
		},
		{
			"empty group allowlist falls back to account list",
			accountList,
			&waconfig.GroupConfig{AllowFrom: []string{}},
			"16505551234",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.IsUserAllowed(tt.sender, tt.account, true, tt.group)
			if got != tt.wantAllow {
				t.Errorf("IsUserAllowed = %v, want %v", got, tt.wantAllow)
			}
		})
	}
}

func TestEvaluateGroup(t *testing.T) {
	accountList := waconfig.AccountConfig{
		GroupPolicy:    "allowlist",
		GroupAllowFrom: []string{"123@g.us"},
	}

	tests := []struct {
		name      string
		account   waconfig.AccountConfig
		group     *waconfig.GroupConfig
		groupID   string
		wantAllow bool
	}{
		{"disabled denies", waconfig.AccountConfig{GroupPolicy: "disabled"}, &waconfig.GroupConfig{}, "123@g.us", false},
		{"open allows", waconfig.AccountConfig{GroupPolicy: "open"}, nil, "999@g.us", true},
		{"record present and enabled", accountList, &waconfig.GroupConfig{}, "999@g.us", true},
		{"record present and explicitly enabled", accountList, &waconfig.GroupConfig{Enabled: boolPtr(true)}, "999@g.us", true},
		{"record disables even allowlisted group", accountList, &waconfig.GroupConfig{Enabled: boolPtr(false)}, "123@g.us", false},
		{"no record, allowlisted group", accountList, nil, "123@g.us", true},
		{"no record, unlisted group", accountList, nil, "999@g.us", false},
		{"no record, no allowlist fails closed", waconfig.AccountConfig{GroupPolicy: "allowlist"}, nil, "123@g.us", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.IsGroupAllowed(tt.groupID, tt.account, tt.group)
			if got != tt.wantAllow {
				t.Errorf("IsGroupAllowed = %v, want %v", got, tt.wantAllow)
			}
		})
	}
}

func TestEvaluateUser_Result(t *testing.T) {
	res := policy.EvaluateUser("19995550000", waconfig.AccountConfig{DmPolicy: "allowlist"}, false, nil)
	if res.Allowed() {
		t.Fatal("expected deny")
	}
	if res.Rule != "dm_allowlist" || res.Reason == "" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestIsMentionRequired(t *testing.T) {
	acct := waconfig.AccountConfig{}
	if policy.IsMentionRequired(acct, nil) {
		t.Error("no group config should not require mention")
	}
	if policy.IsMentionRequired(acct, &waconfig.GroupConfig{}) {
		t.Error("absent flag should not require mention")
	}
	if !policy.IsMentionRequired(acct, &waconfig.GroupConfig{RequireMention: boolPtr(true)}) {
		t.Error("explicit flag should require mention")
	}
	if policy.IsMentionRequired(acct, &waconfig.GroupConfig{RequireMention: boolPtr(false)}) {
		t.Error("explicit false should not require mention")
	}
}

func TestDecisionString(t *testing.T) {
	tests := []struct {
		d    policy.Decision
		want string
	}{
		{policy.DecisionAllow, "allow"},
		{policy.DecisionDeny, "deny"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Decision(%d).String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}
