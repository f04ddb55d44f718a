package normalize_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ktsujino/watari/internal/watari/normalize"
)

func TestE164(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already e164", "+41796666864", "+41796666864"},
		{"bare full number", "41796666864", "+41796666864"},
		{"international 00 prefix", "0041796666864", "+41796666864"},
		{"separators stripped", "+1 (650) 555-1234", "+16505551234"},
		{"dots stripped", "1.650.555.1234", "+16505551234"},
		{"short number kept as-is", "555123", "555123"},
		{"letters dropped", "call +1 650 555 1234 now", "+16505551234"},
		{"no digits", "hello", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize.E164(tt.in); got != tt.want {
				t.Errorf("E164(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsGroupJID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123456789@g.us", true},
		{"123456789-987654@g.us", true},
		{"whatsapp:123456789@g.us", true},
		{"123456789@G.US", true},
		{"abc@g.us", false},
		{"@g.us", false},
		{"123@456@g.us", false},
		{"123456789@s.whatsapp.net", false},
		{"123456789", false},
	}
	for _, tt := range tests {
		if got := normalize.IsGroupJID(tt.in); got != tt.want {
			t.Errorf("IsGroupJID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsUserTarget(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"41796666864@s.whatsapp.net", true},
		{"41796666864:0@s.whatsapp.net", true},
		{"123456@lid", true},
		{"whatsapp:41796666864@s.whatsapp.net", true},
		{"123456789@g.us", false},
		{"+41796666864", false},
		{"abc@s.whatsapp.net", false},
	}
	for _, tt := range tests {
		if got := normalize.IsUserTarget(tt.in); got != tt.want {
			t.Errorf("IsUserTarget(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"group jid", "123456789@g.us", "123456789@g.us", true},
		{"group jid cased domain", "123456789@G.US", "123456789@g.us", true},
		{"user jid", "41796666864:0@s.whatsapp.net", "+41796666864", true},
		{"lid", "16505551234@lid", "+16505551234", true},
		{"plain number", "41 79 666 68 64", "+41796666864", true},
		{"prefixed", "whatsapp:+16505551234", "+16505551234", true},
		{"double prefixed", "whatsapp:whatsapp:+16505551234", "+16505551234", true},
		{"unknown jid domain", "someone@example.com", "", false},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"no digits", "hello", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize.Target(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Target(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatID(t *testing.T) {
	if got := normalize.FormatID("123456789@g.us"); got != "group:123456789@g.us" {
		t.Errorf("FormatID(group) = %q", got)
	}
	if got := normalize.FormatID("41796666864@s.whatsapp.net"); got != "+41796666864" {
		t.Errorf("FormatID(user) = %q", got)
	}
	if got := normalize.FormatID("mystery@example.com"); got != "mystery@example.com" {
		t.Errorf("FormatID(unknown) = %q", got)
	}
}

func TestChatTypeOf(t *testing.T) {
	if got := normalize.ChatTypeOf("123456789@g.us"); got != normalize.ChatTypeGroup {
		t.Errorf("ChatTypeOf(group) = %q", got)
	}
	if got := normalize.ChatTypeOf("+16505551234"); got != normalize.ChatTypeUser {
		t.Errorf("ChatTypeOf(user) = %q", got)
	}
}

func TestBuildUserJID(t *testing.T) {
	if got := normalize.BuildUserJID("+1234567890"); got != "1234567890@s.whatsapp.net" {
		t.Errorf("BuildUserJID = %q", got)
	}
	if got := normalize.BuildUserJID("00417966668641"); got != "417966668641@s.whatsapp.net" {
		t.Errorf("BuildUserJID(00 prefix) = %q", got)
	}
}

func TestIsValidNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+16505551234", true},
		{"41796666864@s.whatsapp.net", true},
		{"+123456789", false},         // 9 digits
		{"+1234567890123456", false},  // 16 digits
		{"555123", false},             // short, never prefixed
		{"123456789@g.us", false},     // groups are not numbers
		{"", false},
	}
	for _, tt := range tests {
		if got := normalize.IsValidNumber(tt.in); got != tt.want {
			t.Errorf("IsValidNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+16505551234", "+1 650 555 1234"},
		{"+41796666864", "+4 179 666 6864"},
		{"555123", "555123"},
		{"no digits", "no digits"},
	}
	for _, tt := range tests {
		if got := normalize.FormatPhoneNumber(tt.in); got != tt.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChunkText(t *testing.T) {
	t.Run("empty and whitespace", func(t *testing.T) {
		if got := normalize.ChunkText("", 0); got != nil {
			t.Errorf("ChunkText(empty) = %v", got)
		}
		if got := normalize.ChunkText("   \n  ", 0); got != nil {
			t.Errorf("ChunkText(whitespace) = %v", got)
		}
	})

	t.Run("short text single chunk", func(t *testing.T) {
		got := normalize.ChunkText("  hello world  ", 0)
		want := []string{"hello world"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("prefers paragraph break", func(t *testing.T) {
		text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
		got := normalize.ChunkText(text, 100)
		want := []string{strings.Repeat("a", 60), strings.Repeat("b", 60)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("falls back to line break", func(t *testing.T) {
		text := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
		got := normalize.ChunkText(text, 100)
		want := []string{strings.Repeat("a", 60), strings.Repeat("b", 60)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("sentence boundary", func(t *testing.T) {
		text := strings.Repeat("a", 58) + ". " + strings.Repeat("b", 60)
		got := normalize.ChunkText(text, 100)
		want := []string{strings.Repeat("a", 58) + ".", strings.Repeat("b", 60)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("word boundary", func(t *testing.T) {
		text := strings.Repeat("a", 60) + " " + strings.Repeat("b", 60)
		got := normalize.ChunkText(text, 100)
		want := []string{strings.Repeat("a", 60), strings.Repeat("b", 60)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("hard cut without boundaries", func(t *testing.T) {
		text := strings.Repeat("a", 250)
		got := normalize.ChunkText(text, 100)
		want := []string{strings.Repeat("a", 100), strings.Repeat("a", 100), strings.Repeat("a", 50)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ChunkText = %v, want %v", got, want)
		}
	})

	t.Run("every chunk within limit", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet. ", 200)
		for _, chunk := range normalize.ChunkText(text, 100) {
			if n := len([]rune(chunk)); n > 100 {
				t.Errorf("chunk of %d runes exceeds limit: %q", n, chunk)
			}
		}
	})
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "..."},
		{"hello", 2, ".."},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := normalize.TruncateText(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
