package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/vault"
)

// NotesConfig wires the notes toolset to a vault.
type NotesConfig struct {
	Vault *vault.Vault
	// Exclude lists directories tools never touch. Nil means
	// DefaultNotesExclude.
	Exclude []string
}

// DefaultNotesExclude returns the vault directories hidden from tools:
// the conversation logs the assistant itself writes, plugin state, and
// trash.
func DefaultNotesExclude() []string {
	return []string{
		"AI Chats",
		"AI Memory",
		".obsidian",
		".smart-connections",
		".trash",
		".git",
	}
}

type notesTools struct {
	vault   *vault.Vault
	exclude []string
}

// Notes builds the vault navigation toolset. Everything is read-only
// and confined to the vault, so every tool is safe.
func Notes(cfg NotesConfig) []Tool {
	n := &notesTools{vault: cfg.Vault, exclude: cfg.Exclude}
	if n.exclude == nil {
		n.exclude = DefaultNotesExclude()
	}

	return []Tool{
		{
			Name:        "list_notes",
			Description: "List files and directories in the vault. Shows note sizes to help decide what to read. Use this to explore the vault structure before diving into specific notes.",
			Parameters: map[string]Param{
				"directory": {Type: "string", Description: "Directory path relative to the vault root. Empty string means the vault root."},
			},
			Safe: true,
			Func: n.listNotes,
		},
		{
			Name:        "note_outline",
			Description: "Get the outline of a note without reading its full content: frontmatter metadata, headings with line numbers, wiki links, and total line count. Use this to understand a note's structure before reading specific sections.",
			Parameters: map[string]Param{
				"filepath": {Type: "string", Description: "Path to the note relative to the vault root (e.g. 'Projects/MyProject.md')", Required: true},
			},
			Safe: true,
			Func: n.noteOutline,
		},
		{
			Name:        "read_note",
			Description: "Read a note with line numbers. Supports reading specific line ranges for large notes. Lines are numbered starting from 1. Use note_outline first to see the structure.",
			Parameters: map[string]Param{
				"filepath": {Type: "string", Description: "Path to the note relative to the vault root", Required: true},
				"offset":   {Type: "integer", Description: "Start reading from this line number (1-based). Default: 1"},
				"limit":    {Type: "integer", Description: "Maximum number of lines to return. Default: 200"},
			},
			Safe: true,
			Func: n.readNote,
		},
		{
			Name:        "read_note_section",
			Description: "Read a specific section of a note by heading name. The section runs from the heading until the next heading of equal or higher level. Use note_outline first to see available headings.",
			Parameters: map[string]Param{
				"filepath": {Type: "string", Description: "Path to the note relative to the vault root", Required: true},
				"heading":  {Type: "string", Description: "The exact heading text to find (without the # symbols)", Required: true},
			},
			Safe: true,
			Func: n.readNoteSection,
		},
		{
			Name:        "search_notes",
			Description: "Search for text across notes in the vault, case-insensitive over file names and content. Returns matching notes with line previews. Use this to find relevant notes before reading them.",
			Parameters: map[string]Param{
				"query":       {Type: "string", Description: "Text to search for (case-insensitive)", Required: true},
				"directory":   {Type: "string", Description: "Limit the search to this directory. Empty means the entire vault."},
				"max_results": {Type: "integer", Description: "Maximum number of matching notes to return. Default: 10"},
			},
			Safe: true,
			Func: n.searchNotes,
		},
		{
			Name:        "note_links",
			Description: "Get all wiki links from a note. Use this to discover connected notes without reading the full content.",
			Parameters: map[string]Param{
				"filepath": {Type: "string", Description: "Path to the note relative to the vault root", Required: true},
			},
			Safe: true,
			Func: n.noteLinks,
		},
	}
}

// resolve validates a tool-supplied path and anchors it in the vault.
func (n *notesTools) resolve(relPath string, isDir bool) (string, error) {
	if n.vault == nil {
		return "", fmt.Errorf("vault is not configured")
	}
	if relPath != "" {
		if err := vault.ValidateRelPath(relPath); err != nil {
			return "", err
		}
		if !isDir {
			relPath = vault.EnsureMD(relPath)
		}
		if vault.Excluded(relPath, n.exclude) {
			return "", fmt.Errorf("access to %s is not allowed", relPath)
		}
	}
	full := filepath.Join(n.vault.Root, relPath)
	rel, err := filepath.Rel(n.vault.Root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: attempted to access outside of vault")
	}
	return full, nil
}

func (n *notesTools) listNotes(ctx context.Context, args map[string]any) (any, error) {
	directory, _ := args["directory"].(string)

	full, err := n.resolve(directory, true)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	info, err := os.Stat(full)
	if err != nil {
		return fmt.Sprintf("Error: Directory '%s' does not exist", directory), nil
	}
	if !info.IsDir() {
		return fmt.Sprintf("Error: '%s' is not a directory", directory), nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	var dirs, files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || vault.Excluded(name, n.exclude) {
			continue
		}
		if entry.IsDir() {
			if count, err := countVisible(filepath.Join(full, name)); err == nil {
				dirs = append(dirs, fmt.Sprintf("📁 %s/ (%d items)", name, count))
			} else {
				dirs = append(dirs, fmt.Sprintf("📁 %s/", name))
			}
			continue
		}
		if filepath.Ext(name) == ".md" {
			var size int64
			if fi, err := entry.Info(); err == nil {
				size = fi.Size()
			}
			files = append(files, fmt.Sprintf("📄 %s [%s]", name, formatSize(size)))
		}
	}

	var out []string
	if directory != "" {
		out = append(out, fmt.Sprintf("Contents of: %s/", directory))
	} else {
		out = append(out, "Contents of vault root:")
	}
	out = append(out, "")
	if len(dirs) > 0 {
		out = append(out, "Directories:")
		for _, d := range dirs {
			out = append(out, "  "+d)
		}
		out = append(out, "")
	}
	if len(files) > 0 {
		out = append(out, "Notes:")
		for _, f := range files {
			out = append(out, "  "+f)
		}
	}
	if len(dirs) == 0 && len(files) == 0 {
		out = append(out, "(empty)")
	}
	return strings.Join(out, "\n"), nil
}

func (n *notesTools) noteOutline(ctx context.Context, args map[string]any) (any, error) {
	notePath, _ := args["filepath"].(string)

	full, err := n.resolve(notePath, false)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: Note '%s' does not exist", notePath), nil
		}
		return nil, err
	}
	content := string(data)

	out := []string{
		fmt.Sprintf("📄 %s", notePath),
		fmt.Sprintf("Size: %s | Lines: %d", formatSize(int64(len(data))), len(strings.Split(content, "\n"))),
		"",
	}

	if pairs := simpleFrontmatter(content); len(pairs) > 0 {
		out = append(out, "Frontmatter:")
		for _, kv := range pairs {
			out = append(out, fmt.Sprintf("  %s: %s", kv[0], kv[1]))
		}
		out = append(out, "")
	}

	if headings := extractHeadings(content); len(headings) > 0 {
		out = append(out, "Outline:")
		for _, h := range headings {
			indent := strings.Repeat("  ", h.Level-1)
			out = append(out, fmt.Sprintf("  %s%s %s (line %d)", indent, strings.Repeat("#", h.Level), h.Text, h.Line))
		}
		out = append(out, "")
	}

	if links := extractWikilinks(content); len(links) > 0 {
		out = append(out, fmt.Sprintf("Links (%d):", len(links)))
		shown := links
		if len(shown) > 20 {
			shown = shown[:20]
		}
		for _, link := range shown {
			out = append(out, fmt.Sprintf("  [[%s]]", link))
		}
		if len(links) > 20 {
			out = append(out, fmt.Sprintf("  ... and %d more", len(links)-20))
		}
	}
	return strings.Join(out, "\n"), nil
}

func (n *notesTools) readNote(ctx context.Context, args map[string]any) (any, error) {
	notePath, _ := args["filepath"].(string)

	full, err := n.resolve(notePath, false)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: Note '%s' does not exist", notePath), nil
		}
		return nil, err
	}

	offset := intArg(args, "offset", 1)
	if offset < 1 {
		offset = 1
	}
	limit := intArg(args, "limit", 200)

	lines := splitLines(string(data))
	total := len(lines)
	start := offset - 1
	end := start + limit
	if end > total {
		end = total
	}

	out := []string{
		fmt.Sprintf("📄 %s (lines %d-%d of %d)", notePath, offset, end, total),
		strings.Repeat("-", 60),
	}
	for i := start; i < end; i++ {
		out = append(out, fmt.Sprintf("%6d|%s", i+1, lines[i]))
	}
	if end < total {
		out = append(out, strings.Repeat("-", 60))
		out = append(out, fmt.Sprintf("... %d more lines. Use offset=%d to continue reading.", total-end, end+1))
	}
	return strings.Join(out, "\n"), nil
}

func (n *notesTools) readNoteSection(ctx context.Context, args map[string]any) (any, error) {
	notePath, _ := args["filepath"].(string)
	headingText, _ := args["heading"].(string)

	full, err := n.resolve(notePath, false)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: Note '%s' does not exist", notePath), nil
		}
		return nil, err
	}
	content := string(data)
	lines := strings.Split(content, "\n")
	headings := extractHeadings(content)

	var target *heading
	for i := range headings {
		if strings.EqualFold(headings[i].Text, headingText) {
			target = &headings[i]
			break
		}
	}
	if target == nil {
		names := make([]string, len(headings))
		for i, h := range headings {
			names[i] = h.Text
		}
		return fmt.Sprintf("Error: Heading '%s' not found.\nAvailable headings: %s",
			headingText, strings.Join(names, ", ")), nil
	}

	startLine := target.Line
	endLine := len(lines)
	for _, h := range headings {
		if h.Line > target.Line && h.Level <= target.Level {
			endLine = h.Line - 1
			break
		}
	}

	out := []string{
		fmt.Sprintf("📄 %s > %s (lines %d-%d)", notePath, headingText, startLine, endLine),
		strings.Repeat("-", 60),
	}
	for i := startLine; i <= endLine; i++ {
		out = append(out, fmt.Sprintf("%6d|%s", i, lines[i-1]))
	}
	return strings.Join(out, "\n"), nil
}

func (n *notesTools) searchNotes(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	directory, _ := args["directory"].(string)
	maxResults := intArg(args, "max_results", 10)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if n.vault == nil {
		return nil, fmt.Errorf("vault is not configured")
	}

	searchRoot := n.vault.Root
	if directory != "" {
		full, err := n.resolve(directory, true)
		if err != nil {
			return fmt.Sprintf("Error: %v", err), nil
		}
		searchRoot = full
	}
	if _, err := os.Stat(searchRoot); err != nil {
		return fmt.Sprintf("Error: Directory '%s' does not exist", directory), nil
	}

	queryLower := strings.ToLower(query)
	type noteMatch struct {
		path         string
		nameMatch    bool
		previews     []string
		totalMatches int
	}
	var matches []noteMatch

	filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if len(matches) >= maxResults {
			return fs.SkipAll
		}
		rel, err := filepath.Rel(n.vault.Root, path)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != searchRoot && vault.Excluded(rel, n.exclude) {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" || vault.Excluded(rel, n.exclude) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(path), ".md")
		nameMatch := strings.Contains(strings.ToLower(stem), queryLower)

		var previews []string
		total := 0
		for i, line := range strings.Split(string(data), "\n") {
			if !strings.Contains(strings.ToLower(line), queryLower) {
				continue
			}
			total++
			if len(previews) < 3 {
				previews = append(previews, fmt.Sprintf("   Line %d: ...%s...", i+1, previewText(line)))
			}
		}
		if nameMatch || total > 0 {
			matches = append(matches, noteMatch{path: rel, nameMatch: nameMatch, previews: previews, totalMatches: total})
		}
		return nil
	})

	if len(matches) == 0 {
		return fmt.Sprintf("No notes found matching '%s'", query), nil
	}

	out := []string{fmt.Sprintf("Search results for '%s':", query), ""}
	for _, m := range matches {
		out = append(out, fmt.Sprintf("📄 %s", m.path))
		if m.nameMatch {
			out = append(out, "   ✓ Filename match")
		}
		if len(m.previews) > 0 {
			out = append(out, m.previews...)
			if m.totalMatches > 3 {
				out = append(out, fmt.Sprintf("   (%d total matches)", m.totalMatches))
			}
		}
		out = append(out, "")
	}
	return strings.Join(out, "\n"), nil
}

func (n *notesTools) noteLinks(ctx context.Context, args map[string]any) (any, error) {
	notePath, _ := args["filepath"].(string)

	full, err := n.resolve(notePath, false)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("Error: Note '%s' does not exist", notePath), nil
		}
		return nil, err
	}

	links := extractWikilinks(string(data))
	if len(links) == 0 {
		return fmt.Sprintf("No wikilinks found in %s", notePath), nil
	}

	out := []string{fmt.Sprintf("Links in %s (%d total):", notePath, len(links)), ""}
	for _, link := range links {
		mark := "✗"
		if info, err := os.Stat(filepath.Join(n.vault.Root, link+".md")); err == nil && info.Mode().IsRegular() {
			mark = "✓"
		}
		out = append(out, fmt.Sprintf("  %s [[%s]]", mark, link))
	}
	return strings.Join(out, "\n"), nil
}

type heading struct {
	Level int
	Text  string
	Line  int
}

var (
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	wikilinkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
)

// extractHeadings returns markdown headings with 1-based line numbers.
func extractHeadings(content string) []heading {
	var headings []heading
	for i, line := range strings.Split(content, "\n") {
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, heading{
			Level: len(m[1]),
			Text:  strings.TrimSpace(m[2]),
			Line:  i + 1,
		})
	}
	return headings
}

// extractWikilinks returns link targets in order, deduplicated. Aliases
// are dropped.
func extractWikilinks(content string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, m := range wikilinkPattern.FindAllStringSubmatch(content, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		links = append(links, m[1])
	}
	return links
}

// simpleFrontmatter scans the frontmatter block as flat key: value
// lines, preserving order. Outlines only need the surface fields, not
// full YAML.
func simpleFrontmatter(content string) [][2]string {
	if !strings.HasPrefix(content, "---") {
		return nil
	}
	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}
	var pairs [][2]string
	for _, line := range lines[1:end] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(key), strings.TrimSpace(value)})
	}
	return pairs
}

// formatSize renders a byte count the way vault listings show it.
func formatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%dB", size)
	case size < 1024*1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	}
}

// splitLines splits on newlines the way line-oriented reads do: a
// trailing newline does not produce a trailing empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// previewText trims a matched line to its first 100 characters.
func previewText(line string) string {
	line = strings.TrimSpace(line)
	if runes := []rune(line); len(runes) > 100 {
		return string(runes[:100])
	}
	return line
}

// intArg reads an integer argument, tolerating JSON's float decoding.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func countVisible(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), ".") {
			count++
		}
	}
	return count, nil
}
