package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"notes.pdf", "notes.pdf", false},
		{" lecture 3.docx ", "lecture 3.docx", false},
		{"a/b.pdf", "a_b.pdf", false},
		{"a\\b.pdf", "a_b.pdf", false},
		{"notes\x00\x1b.pdf", "notes.pdf", false},
		{"../etc/passwd", "", true},
		{"   ", "", true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameTrimsOverlongNames(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300) + ".pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if n := len([]rune(got)); n > 120 {
		t.Fatalf("name not trimmed, %d runes", n)
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("extension lost: %q", got)
	}
}
