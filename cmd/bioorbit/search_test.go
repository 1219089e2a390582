// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCountsRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short unchanged", "bone loss", 50, "bone loss"},
		{"ascii cut", strings.Repeat("a", 60), 10, "aaaaaaa..."},
		{"multi-byte cut", strings.Repeat("β", 60), 10, "βββββββ..."},
		{"exact length unchanged", strings.Repeat("β", 10), 10, strings.Repeat("β", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestFormatSearchOutputKeepsUTF8Intact(t *testing.T) {
	results := []searchHit{{
		PublicationID: "PMC1",
		Title:         strings.Repeat("Микрогравитация ", 8),
		Score:         0.91,
		Summary:       strings.Repeat("骨密度の低下。", 20),
	}}

	var buf bytes.Buffer
	if err := formatSearchOutput(&buf, results, false); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !utf8.ValidString(out) {
		t.Error("table output contains invalid UTF-8")
	}
	if !strings.Contains(out, "...") {
		t.Error("long fields not truncated")
	}
}
