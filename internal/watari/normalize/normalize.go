// Package normalize canonicalizes WhatsApp identifiers and prepares outbound
// text.
//
// It handles E.164 phone normalization, JID parsing (user JIDs, group JIDs,
// LIDs), the "whatsapp:" URI prefix, and chunking of long messages at
// natural boundaries. Everything here is pure string work; identifiers are
// never validated against the network.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextChunkLimit is the default character limit for a single WhatsApp text
// message.
const TextChunkLimit = 4096

var (
	// userJIDRe matches user JIDs like "41796666864:0@s.whatsapp.net".
	userJIDRe = regexp.MustCompile(`(?i)^(\d+)(?::\d+)?@s\.whatsapp\.net$`)
	// lidRe matches LID JIDs like "123@lid".
	lidRe = regexp.MustCompile(`(?i)^(\d+)@lid$`)
	// groupLocalRe is the valid local part of a group JID: digit groups
	// separated by dashes.
	groupLocalRe = regexp.MustCompile(`^[0-9]+(-[0-9]+)*$`)

	separatorRe    = regexp.MustCompile(`[\s\-(). ]+`)
	nonDigitPlusRe = regexp.MustCompile(`[^\d+]`)
	e164DigitsRe   = regexp.MustCompile(`^\d{10,15}$`)
)

const groupDomain = "@g.us"

// stripTargetPrefixes removes all leading "whatsapp:" prefixes.
func stripTargetPrefixes(value string) string {
	candidate := strings.TrimSpace(value)
	for {
		if !strings.HasPrefix(strings.ToLower(candidate), "whatsapp:") {
			return candidate
		}
		candidate = strings.TrimSpace(candidate[len("whatsapp:"):])
	}
}

// E164 normalizes a phone number string to E.164 form. It strips whitespace,
// dashes, parentheses, and dots, keeps an existing "+" prefix, converts a
// leading "00" to "+", and prepends "+" to bare numbers of ten or more
// digits. Strings shorter than ten digits come back as-is; input with no
// usable digits comes back empty.
func E164(input string) string {
	digits := nonDigitPlusRe.ReplaceAllString(separatorRe.ReplaceAllString(input, ""), "")
	if digits == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(digits, "+"):
		return digits
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case len(digits) >= 10:
		return "+" + digits
	}
	return digits
}

// IsGroupJID reports whether value is a WhatsApp group JID ("…@g.us").
// The "whatsapp:" prefix is tolerated and the domain match is
// case-insensitive; the local part must be digit groups separated by dashes.
func IsGroupJID(value string) bool {
	candidate := stripTargetPrefixes(value)
	if !strings.HasSuffix(strings.ToLower(candidate), groupDomain) {
		return false
	}
	local := candidate[:len(candidate)-len(groupDomain)]
	if local == "" || strings.Contains(local, "@") {
		return false
	}
	return groupLocalRe.MatchString(local)
}

// IsUserTarget reports whether value looks like a WhatsApp user target: a
// user JID ("…@s.whatsapp.net") or a LID ("…@lid").
func IsUserTarget(value string) bool {
	candidate := stripTargetPrefixes(value)
	return userJIDRe.MatchString(candidate) || lidRe.MatchString(candidate)
}

// extractUserJIDPhone pulls the phone-number portion out of a user JID or
// LID: "41796666864:0@s.whatsapp.net" yields "41796666864".
func extractUserJIDPhone(jid string) string {
	if m := userJIDRe.FindStringSubmatch(jid); m != nil {
		return m[1]
	}
	if m := lidRe.FindStringSubmatch(jid); m != nil {
		return m[1]
	}
	return ""
}

// Target normalizes a WhatsApp target: a phone number, user JID, or group
// JID. Group JIDs keep their local part verbatim with a lower-cased domain;
// user JIDs and plain numbers become E.164. The second return is false when
// the target cannot be recognized.
func Target(value string) (string, bool) {
	candidate := stripTargetPrefixes(value)
	if candidate == "" {
		return "", false
	}

	if IsGroupJID(candidate) {
		return candidate[:len(candidate)-len(groupDomain)] + groupDomain, true
	}

	if IsUserTarget(candidate) {
		phone := extractUserJIDPhone(candidate)
		if phone == "" {
			return "", false
		}
		normalized := E164(phone)
		if len(normalized) <= 1 {
			return "", false
		}
		return normalized, true
	}

	// Unrecognized JID-ish strings fail fast instead of being mistaken for
	// phone numbers.
	if strings.Contains(candidate, "@") {
		return "", false
	}

	normalized := E164(candidate)
	if len(normalized) <= 1 {
		return "", false
	}
	return normalized, true
}

// FormatID formats a WhatsApp id for display: groups get a "group:" prefix,
// user targets become E.164, and unrecognized ids pass through unchanged.
func FormatID(id string) string {
	if IsGroupJID(id) {
		return "group:" + id
	}
	if normalized, ok := Target(id); ok {
		return normalized
	}
	return id
}

// ChatType distinguishes group chats from one-on-one chats.
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeUser  ChatType = "user"
)

// ChatTypeOf classifies a chat id.
func ChatTypeOf(id string) ChatType {
	if IsGroupJID(id) {
		return ChatTypeGroup
	}
	return ChatTypeUser
}

// BuildUserJID builds a user JID from a phone number:
// "+1234567890" becomes "1234567890@s.whatsapp.net".
func BuildUserJID(phoneNumber string) string {
	digits := strings.TrimLeft(E164(phoneNumber), "+")
	return digits + "@s.whatsapp.net"
}

// IsValidNumber reports whether value normalizes to a usable WhatsApp phone
// number: E.164 with 10 to 15 digits after the "+".
func IsValidNumber(value string) bool {
	normalized, ok := Target(value)
	if !ok || !strings.HasPrefix(normalized, "+") {
		return false
	}
	return e164DigitsRe.MatchString(strings.TrimLeft(normalized, "+"))
}

// FormatPhoneNumber formats a phone number for display. Numbers longer than
// ten digits are split into country-code and local portions.
func FormatPhoneNumber(phoneNumber string) string {
	normalized := E164(phoneNumber)
	if normalized == "" {
		return phoneNumber
	}
	digits := strings.TrimLeft(normalized, "+")
	if len(digits) <= 10 {
		return normalized
	}
	countryCode := digits[:len(digits)-10]
	rest := digits[len(digits)-10:]
	return fmt.Sprintf("+%s %s %s %s", countryCode, rest[:3], rest[3:6], rest[6:])
}

// SystemLocation builds a human-readable chat location for log lines.
func SystemLocation(chatType ChatType, chatID, chatName string) string {
	name := chatName
	if name == "" {
		r := []rune(chatID)
		if len(r) > 8 {
			r = r[:8]
		}
		name = string(r)
	}
	return fmt.Sprintf("WhatsApp %s:%s", chatType, name)
}

// ChunkText splits text into chunks of at most limit characters, preferring
// paragraph breaks, then line breaks, then sentence boundaries, then word
// boundaries, before falling back to a hard cut. A limit of zero or less
// uses TextChunkLimit. Whitespace-only input yields no chunks.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = TextChunkLimit
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= limit {
		return []string{trimmed}
	}

	var chunks []string
	remaining := trimmed
	for remaining != "" {
		var chunk string
		chunk, remaining = splitAtBreakPoint(remaining, limit)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// splitAtBreakPoint splits text at the last safe break point within limit
// characters and returns (chunk, remainder). A break point only counts when
// it lands past the halfway mark, so chunks stay reasonably full.
func splitAtBreakPoint(text string, limit int) (string, string) {
	runes := []rune(text)
	if len(runes) <= limit {
		return text, ""
	}

	search := runes[:limit]
	half := limit / 2

	if idx := lastIndexRunes(search, "\n\n"); idx > half {
		return trimRight(runes[:idx]), trimLeft(runes[idx+2:])
	}

	if idx := lastIndexRunes(search, "\n"); idx > half {
		return trimRight(runes[:idx]), trimLeft(runes[idx+1:])
	}

	sentenceEnd := lastIndexRunes(search, ". ")
	if idx := lastIndexRunes(search, "! "); idx > sentenceEnd {
		sentenceEnd = idx
	}
	if idx := lastIndexRunes(search, "? "); idx > sentenceEnd {
		sentenceEnd = idx
	}
	if sentenceEnd > half {
		return trimRight(runes[:sentenceEnd+1]), trimLeft(runes[sentenceEnd+2:])
	}

	if idx := lastIndexRunes(search, " "); idx > half {
		return trimRight(runes[:idx]), trimLeft(runes[idx+1:])
	}

	return string(runes[:limit]), string(runes[limit:])
}

// lastIndexRunes finds the last occurrence of sep in r, in rune offsets.
func lastIndexRunes(r []rune, sep string) int {
	s := []rune(sep)
	for i := len(r) - len(s); i >= 0; i-- {
		match := true
		for j := range s {
			if r[i+j] != s[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimRight(r []rune) string {
	return strings.TrimRightFunc(string(r), unicode.IsSpace)
}

func trimLeft(r []rune) string {
	return strings.TrimLeftFunc(string(r), unicode.IsSpace)
}

// TruncateText shortens text to at most max characters, appending "..." when
// anything was cut.
func TruncateText(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max <= 0 {
		return ""
	}
	if max <= 3 {
		return "..."[:max]
	}
	return string(r[:max-3]) + "..."
}
