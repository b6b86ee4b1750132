package vault

import "testing"

func TestStripFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"valid frontmatter", "---\ntitle: Test\n---\nHello World", "Hello World"},
		{"no frontmatter", "Hello World", "Hello World"},
		{"empty content", "", ""},
		{"only frontmatter", "---\ntitle: Test\n---", ""},
		{"dashes inside a value", "---\ntitle: Test\ncontent: ---\n---\nHello World", "Hello World"},
		{"indented opener", " ---\ntitle: Test\n---\nHello World", " ---\ntitle: Test\n---\nHello World"},
		{"indented closer", "---\ntitle: Test\n --- \nHello World", "---\ntitle: Test\n --- \nHello World"},
		{"no closer", "---\ntitle: Test\nHello World", "---\ntitle: Test\nHello World"},
		{"invalid yaml", "---\ntitle: \"Unclosed string\n---\nHello World", "---\ntitle: \"Unclosed string\n---\nHello World"},
		{"empty block", "---\n---\nHello World", "Hello World"},
		{"crlf line endings", "---\r\ntitle: Test\r\n---\r\nHello World", "Hello World"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFrontmatter(tt.content); got != tt.want {
				t.Fatalf("StripFrontmatter(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestHasFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"valid", "---\ntitle: Test\n---\nHello", true},
		{"plain text", "No frontmatter here.", false},
		{"unclosed", "---\ntitle: Test\nHello", false},
		{"empty block", "---\n---\nbody", true},
		{"empty content", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasFrontmatter(tt.content); got != tt.want {
				t.Fatalf("HasFrontmatter(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestParseFrontmatter(t *testing.T) {
	content := "---\ntitle: Test\ntags: [one, two]\n---\n# Content here\n"
	meta := ParseFrontmatter(content)
	if meta == nil {
		t.Fatal("ParseFrontmatter returned nil for valid frontmatter")
	}
	if meta["title"] != "Test" {
		t.Errorf("title = %v, want Test", meta["title"])
	}
	tags, ok := meta["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "one" || tags[1] != "two" {
		t.Errorf("tags = %v, want [one two]", meta["tags"])
	}

	if got := ParseFrontmatter("no frontmatter"); got != nil {
		t.Errorf("ParseFrontmatter(plain text) = %v, want nil", got)
	}
	if got := ParseFrontmatter("---\n---\nbody"); got == nil || len(got) != 0 {
		t.Errorf("ParseFrontmatter(empty block) = %v, want empty map", got)
	}
}
