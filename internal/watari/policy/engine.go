// Package policy decides whether inbound WhatsApp traffic may engage an
// account.
//
// Evaluation is purely deterministic over the merged account configuration
// and an optional per-group override: no I/O, no failure modes. Every input,
// including fully absent configuration, maps to a definite allow/deny via
// the policy defaults. Allowlist policies fail closed: an allowlist policy
// with no usable list denies everyone.
package policy

import (
	"fmt"

	"github.com/ktsujino/watari/common/spec/waconfig"
)

// Decision is the outcome of a policy evaluation.
type Decision int

const (
	// DecisionAllow means the message may enter the pipeline.
	DecisionAllow Decision = iota
	// DecisionDeny means the message must be dropped.
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// Result carries a decision together with the rule that produced it, for
// structured logging at the drop site.
type Result struct {
	Decision Decision
	Rule     string
	Reason   string
}

// Allowed reports whether the result permits the message.
func (r Result) Allowed() bool { return r.Decision == DecisionAllow }

// dmPolicy reads the effective DM policy off the merged account config.
// Unknown names count as unset and fall back to the default rather than
// failing the request.
func dmPolicy(account waconfig.AccountConfig) waconfig.DmPolicy {
	if p, ok := waconfig.ParseDmPolicy(account.DmPolicy); ok {
		return p
	}
	return waconfig.DefaultDmPolicy
}

// groupPolicy reads the effective group policy off the merged account config.
func groupPolicy(account waconfig.AccountConfig) waconfig.GroupPolicy {
	if p, ok := waconfig.ParseGroupPolicy(account.GroupPolicy); ok {
		return p
	}
	return waconfig.DefaultGroupPolicy
}

// EvaluateUser decides whether the given sender may address the account.
// identifier is the sender's wa id; group is the per-group override when the
// message arrived in a group, nil otherwise (and for direct messages).
func EvaluateUser(identifier string, account waconfig.AccountConfig, isGroupMessage bool, group *waconfig.GroupConfig) Result {
	if isGroupMessage {
		return evaluateGroupSender(identifier, account, group)
	}
	return evaluateDirectSender(identifier, account)
}

func evaluateDirectSender(identifier string, account waconfig.AccountConfig) Result {
	switch dmPolicy(account) {
	case waconfig.DmPolicyDisabled:
		return Result{Decision: DecisionDeny, Rule: "dm_disabled", Reason: "direct messages are disabled"}
	case waconfig.DmPolicyOpen:
		return Result{Decision: DecisionAllow, Rule: "dm_open"}
	case waconfig.DmPolicyPairing:
		// Identity binding happens in the out-of-band pairing flow; the
		// evaluator's only job under pairing is to not block.
		return Result{Decision: DecisionAllow, Rule: "dm_pairing"}
	}

	if contains(account.AllowFrom, identifier) {
		return Result{Decision: DecisionAllow, Rule: "dm_allowlist"}
	}
	return Result{
		Decision: DecisionDeny,
		Rule:     "dm_allowlist",
		Reason:   fmt.Sprintf("sender %q not on the DM allowlist", identifier),
	}
}

func evaluateGroupSender(identifier string, account waconfig.AccountConfig, group *waconfig.GroupConfig) Result {
	switch groupPolicy(account) {
	case waconfig.GroupPolicyDisabled:
		return Result{Decision: DecisionDeny, Rule: "group_disabled", Reason: "group messages are disabled"}
	case waconfig.GroupPolicyOpen:
		return Result{Decision: DecisionAllow, Rule: "group_open"}
	}

	// A non-empty group-specific allowlist is the sole determinant; the
	// account-level list is not consulted even on a miss.
	if group != nil && len(group.AllowFrom) > 0 {
		if contains(group.AllowFrom, identifier) {
			return Result{Decision: DecisionAllow, Rule: "group_allowlist"}
		}
		return Result{
			Decision: DecisionDeny,
			Rule:     "group_allowlist",
			Reason:   fmt.Sprintf("sender %q not on the group allowlist", identifier),
		}
	}

	if contains(account.GroupAllowFrom, identifier) {
		return Result{Decision: DecisionAllow, Rule: "account_group_allowlist"}
	}
	return Result{
		Decision: DecisionDeny,
		Rule:     "account_group_allowlist",
		Reason:   fmt.Sprintf("sender %q not on the account group allowlist", identifier),
	}
}

// EvaluateGroup decides whether the group as a whole may be engaged,
// independent of any particular sender.
func EvaluateGroup(groupID string, account waconfig.AccountConfig, group *waconfig.GroupConfig) Result {
	switch groupPolicy(account) {
	case waconfig.GroupPolicyDisabled:
		return Result{Decision: DecisionDeny, Rule: "group_disabled", Reason: "group messages are disabled"}
	case waconfig.GroupPolicyOpen:
		return Result{Decision: DecisionAllow, Rule: "group_open"}
	}

	// A group-specific record is authoritative: its enabled flag (absent
	// counts as enabled) decides, and the account-level allowlist is not
	// consulted.
	if group != nil {
		if group.Enabled == nil || *group.Enabled {
			return Result{Decision: DecisionAllow, Rule: "group_record"}
		}
		return Result{
			Decision: DecisionDeny,
			Rule:     "group_record",
			Reason:   fmt.Sprintf("group %q is disabled by its config record", groupID),
		}
	}

	if contains(account.GroupAllowFrom, groupID) {
		return Result{Decision: DecisionAllow, Rule: "account_group_allowlist"}
	}
	return Result{
		Decision: DecisionDeny,
		Rule:     "account_group_allowlist",
		Reason:   fmt.Sprintf("group %q not on the account group allowlist", groupID),
	}
}

// IsUserAllowed reports whether the sender may address the account. It is
// the boolean form of EvaluateUser.
func IsUserAllowed(identifier string, account waconfig.AccountConfig, isGroupMessage bool, group *waconfig.GroupConfig) bool {
	return EvaluateUser(identifier, account, isGroupMessage, group).Allowed()
}

// IsGroupAllowed reports whether the group as a whole may be engaged. It is
// the boolean form of EvaluateGroup.
func IsGroupAllowed(groupID string, account waconfig.AccountConfig, group *waconfig.GroupConfig) bool {
	return EvaluateGroup(groupID, account, group).Allowed()
}

// IsMentionRequired reports whether the bot must be mentioned before it
// responds in this group. Only the group record carries the flag today; the
// account config is accepted so the signature stays stable if an
// account-level default is ever added.
func IsMentionRequired(account waconfig.AccountConfig, group *waconfig.GroupConfig) bool {
	_ = account
	return group != nil && group.RequireMention != nil && *group.RequireMention
}

// contains reports whether value appears verbatim in list.
func contains(list []string, value string) bool {
	for _, s := range list {
		if s == value {
			return true
		}
	}
	return false
}
