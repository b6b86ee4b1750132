package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkwell-ai/inkwell/internal/vault"
)

const gardenNote = `---
status: active
season: spring
---
# Garden

Planting notes and [[Projects/Greenhouse]] plans.

## Beds

Twelve raised beds.
See [[Seed Catalog]] for orders.

### Drainage

Gravel under each bed.

## Watering

Drip lines on a timer.
`

func notesVault(t *testing.T) *vault.Vault {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("Garden.md", gardenNote)
	write("Projects/Greenhouse.md", "# Greenhouse\n\nGlass panels and tomato beds.\n")
	write("AI Chats/log.md", "secret conversation\n")
	write(".obsidian/app.json", "{}")
	return vault.New(root)
}

func TestListNotes(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "list_notes", map[string]any{})
	if err != nil {
		t.Fatalf("list_notes: %v", err)
	}
	text := got.(string)
	for _, want := range []string{
		"Contents of vault root:",
		"📁 Projects/ (1 items)",
		"📄 Garden.md [",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %q:\n%s", want, text)
		}
	}
	for _, absent := range []string{"AI Chats", ".obsidian"} {
		if strings.Contains(text, absent) {
			t.Errorf("listing should not contain %q:\n%s", absent, text)
		}
	}
}

func TestListNotesSubdirectory(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "list_notes", map[string]any{"directory": "Projects"})
	if err != nil {
		t.Fatalf("list_notes: %v", err)
	}
	text := got.(string)
	if !strings.Contains(text, "Contents of: Projects/") {
		t.Errorf("listing = %q", text)
	}
	if !strings.Contains(text, "📄 Greenhouse.md [") {
		t.Errorf("listing missing note:\n%s", text)
	}
}

func TestListNotesErrors(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	tests := []struct {
		name       string
		directory  string
		wantPrefix string
	}{
		{"missing", "Nowhere", "Error: Directory 'Nowhere' does not exist"},
		{"excluded", "AI Chats", "Error: access to AI Chats is not allowed"},
		{"traversal", "../outside", "Error: invalid path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := callTool(t, notes, "list_notes", map[string]any{"directory": tc.directory})
			if err != nil {
				t.Fatalf("list_notes: %v", err)
			}
			if !strings.HasPrefix(got.(string), tc.wantPrefix) {
				t.Errorf("result = %q, want prefix %q", got, tc.wantPrefix)
			}
		})
	}
}

func TestNoteOutline(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "note_outline", map[string]any{"filepath": "Garden"})
	if err != nil {
		t.Fatalf("note_outline: %v", err)
	}
	text := got.(string)
	for _, want := range []string{
		"📄 Garden",
		"Frontmatter:",
		"  status: active",
		"  season: spring",
		"Outline:",
		"  # Garden (line 5)",
		"    ## Beds (line 9)",
		"      ### Drainage (line 14)",
		"    ## Watering (line 18)",
		"Links (2):",
		"  [[Projects/Greenhouse]]",
		"  [[Seed Catalog]]",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("outline missing %q:\n%s", want, text)
		}
	}
}

func TestNoteOutlineMissing(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "note_outline", map[string]any{"filepath": "Nope"})
	if err != nil {
		t.Fatalf("note_outline: %v", err)
	}
	if got != "Error: Note 'Nope' does not exist" {
		t.Errorf("result = %q", got)
	}
}

func TestNoteOutlineExcluded(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "note_outline", map[string]any{"filepath": "AI Chats/log"})
	if err != nil {
		t.Fatalf("note_outline: %v", err)
	}
	if !strings.HasPrefix(got.(string), "Error: access to AI Chats") {
		t.Errorf("result = %q, want exclusion error", got)
	}
}

func TestReadNote(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "read_note", map[string]any{
		"filepath": "Garden",
		"offset":   float64(9),
		"limit":    float64(4),
	})
	if err != nil {
		t.Fatalf("read_note: %v", err)
	}
	text := got.(string)
	for _, want := range []string{
		"📄 Garden (lines 9-12 of 20)",
		"     9|## Beds",
		"    11|Twelve raised beds.",
		"... 8 more lines. Use offset=13 to continue reading.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("read_note missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Drainage") {
		t.Errorf("read_note went past the window:\n%s", text)
	}
}

func TestReadNoteWholeFile(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "read_note", map[string]any{"filepath": "Garden"})
	if err != nil {
		t.Fatalf("read_note: %v", err)
	}
	text := got.(string)
	if !strings.Contains(text, "📄 Garden (lines 1-20 of 20)") {
		t.Errorf("header wrong:\n%s", text)
	}
	if strings.Contains(text, "more lines") {
		t.Errorf("full read should not hint at continuation:\n%s", text)
	}
}

func TestReadNoteSection(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "read_note_section", map[string]any{
		"filepath": "Garden",
		"heading":  "Beds",
	})
	if err != nil {
		t.Fatalf("read_note_section: %v", err)
	}
	text := got.(string)
	if !strings.Contains(text, "📄 Garden > Beds (lines 9-17)") {
		t.Errorf("header wrong:\n%s", text)
	}
	if !strings.Contains(text, "### Drainage") {
		t.Errorf("subsection should be included:\n%s", text)
	}
	if strings.Contains(text, "## Watering") || strings.Contains(text, "Drip lines") {
		t.Errorf("section leaked into the next heading:\n%s", text)
	}
}

func TestReadNoteSectionMissingHeading(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "read_note_section", map[string]any{
		"filepath": "Garden",
		"heading":  "Composting",
	})
	if err != nil {
		t.Fatalf("read_note_section: %v", err)
	}
	text := got.(string)
	if !strings.HasPrefix(text, "Error: Heading 'Composting' not found.") {
		t.Errorf("result = %q", text)
	}
	if !strings.Contains(text, "Garden, Beds, Drainage, Watering") {
		t.Errorf("available headings missing:\n%s", text)
	}
}

func TestSearchNotes(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "search_notes", map[string]any{"query": "tomato"})
	if err != nil {
		t.Fatalf("search_notes: %v", err)
	}
	text := got.(string)
	if !strings.Contains(text, "Search results for 'tomato':") {
		t.Errorf("missing header:\n%s", text)
	}
	if !strings.Contains(text, "📄 Projects/Greenhouse.md") {
		t.Errorf("missing match:\n%s", text)
	}
	if !strings.Contains(text, "Line 3: ...Glass panels and tomato beds") {
		t.Errorf("missing preview:\n%s", text)
	}
}

func TestSearchNotesFilenameMatch(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "search_notes", map[string]any{"query": "greenhouse"})
	if err != nil {
		t.Fatalf("search_notes: %v", err)
	}
	if !strings.Contains(got.(string), "✓ Filename match") {
		t.Errorf("missing filename match:\n%s", got)
	}
}

func TestSearchNotesExcluded(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "search_notes", map[string]any{"query": "secret"})
	if err != nil {
		t.Fatalf("search_notes: %v", err)
	}
	if got != "No notes found matching 'secret'" {
		t.Errorf("excluded directories should not be searched: %q", got)
	}
}

func TestNoteLinks(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "note_links", map[string]any{"filepath": "Garden"})
	if err != nil {
		t.Fatalf("note_links: %v", err)
	}
	text := got.(string)
	for _, want := range []string{
		"Links in Garden (2 total):",
		"  ✓ [[Projects/Greenhouse]]",
		"  ✗ [[Seed Catalog]]",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("note_links missing %q:\n%s", want, text)
		}
	}
}

func TestNoteLinksNone(t *testing.T) {
	notes := Notes(NotesConfig{Vault: notesVault(t)})

	got, err := callTool(t, notes, "note_links", map[string]any{"filepath": "Projects/Greenhouse"})
	if err != nil {
		t.Fatalf("note_links: %v", err)
	}
	if got != "No wikilinks found in Projects/Greenhouse" {
		t.Errorf("result = %q", got)
	}
}
