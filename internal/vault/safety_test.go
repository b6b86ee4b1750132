package vault

import (
	"strings"
	"testing"
)

func TestValidateRelPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string // substring, "" means valid
	}{
		{"simple name", "note.md", ""},
		{"nested path", "Projects/Plan 2026.md", ""},
		{"apostrophe and parens", "John's note (draft).md", ""},
		{"empty", "", "must not contain"},
		{"parent traversal", "../etc/passwd", "must not contain"},
		{"absolute", "/etc/passwd", "must not contain"},
		{"backslash root", `\windows`, "must not contain"},
		{"whitespace only", "   ", "empty or whitespace"},
		{"reserved device name", "CON.md", "reserved name"},
		{"reserved nested", "notes/nul.md", "reserved name"},
		{"hidden file", ".secrets.md", "hidden files"},
		{"shell characters", "a;b.md", "invalid characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelPath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateRelPath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateRelPath(%q) = %v, want error containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestEnsureMD(t *testing.T) {
	if got := EnsureMD("note"); got != "note.md" {
		t.Fatalf("EnsureMD(note) = %q", got)
	}
	if got := EnsureMD("note.md"); got != "note.md" {
		t.Fatalf("EnsureMD(note.md) = %q", got)
	}
}

func TestExcluded(t *testing.T) {
	patterns := []string{"AI Chats", "a/b"}
	tests := []struct {
		path string
		want bool
	}{
		{"AI Chats/log.md", true},
		{"Projects/AI Chats/x.md", true},
		{"AI/Chats.md", false},
		{"notes/x.md", false},
		{"z/a/b/c.md", true},
		{"a/x/b/c.md", false},
	}
	for _, tt := range tests {
		if got := Excluded(tt.path, patterns); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
