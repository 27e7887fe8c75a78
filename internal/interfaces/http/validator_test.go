package http

import (
	"testing"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Ana  ", "Ana"},
		{"a\x00b", "ab"},
		{"ok\xffdone", "okdone"},
		{"Conceição", "Conceição"},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
