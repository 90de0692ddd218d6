package conversation

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if !strings.HasPrefix(id, "conversation_") {
			t.Fatalf("unexpected ID format: %s", id)
		}
		if SanitizeID(id) != id {
			t.Fatalf("generated ID is not filesystem safe: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate generated ID: %s", id)
		}
		seen[id] = true
	}
}

func TestSanitizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"conversation_20250101_120000_000001_abcd1234", "conversation_20250101_120000_000001_abcd1234"},
		{"simple-id_1", "simple-id_1"},
		{"has spaces", "hasspaces"},
		{"dots.get.stripped", "dotsgetstripped"},
		{"../parent", ""},
		{"a/b", ""},
		{`a\b`, ""},
		{"..", ""},
		{"", ""},
		{"!!!", ""},
	}

	for _, tc := range cases {
		if got := SanitizeID(tc.in); got != tc.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
