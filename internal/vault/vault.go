// Package vault resolves file references against a notes vault and
// formats their contents for an AI context window. References come in
// two shapes: wiki links ("[[Meeting Notes]]", optionally carrying a
// "|display" alias) matched against the vault's markdown files by path
// suffix, and plain paths tried under each search root in order.
// Missing or unreadable files become inline error strings rather than
// processing failures, so the model sees what went wrong.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// File reference kinds. The kind names the wrapper element a reference
// is inserted under; prompts are inserted bare.
const (
	KindDocument = "document"
	KindPDF      = "pdf"
	KindPrompt   = "prompt"
)

// Vault is a directory of notes plus the auxiliary roots consulted when
// resolving file references.
type Vault struct {
	Root        string   // vault root, scanned recursively for wiki links
	SearchPaths []string // roots tried in order for plain references
	PromptsDir  string   // directory holding system prompt files
	ScriptsDir  string   // directory holding script sources
	Logger      *slog.Logger
}

// New returns a Vault rooted at root. The root is always the first
// search path; extra roots are tried after it in order.
func New(root string, extra ...string) *Vault {
	return &Vault{
		Root:        root,
		SearchPaths: append([]string{root}, extra...),
	}
}

func (v *Vault) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// ResolvePath locates a referenced file. Wiki references are stripped
// of their brackets and alias, then matched by path suffix against
// every markdown file under the vault root; when several match, the
// shortest path wins. Plain references are tried verbatim and with a
// .md extension under each search path, inside subfolder when
// non-empty. Absolute references are tried as-is.
func (v *Vault) ResolvePath(ref, subfolder string) (string, bool) {
	if strings.HasPrefix(ref, "[[") && strings.HasSuffix(ref, "]]") {
		name := strings.TrimSuffix(strings.TrimPrefix(ref, "[["), "]]")
		name, _, _ = strings.Cut(name, "|")
		return v.resolveWiki(name)
	}
	candidates := []string{ref, ref + ".md"}
	if filepath.IsAbs(ref) {
		for _, name := range candidates {
			if isFile(name) {
				return name, true
			}
		}
		return "", false
	}
	for _, base := range v.SearchPaths {
		for _, name := range candidates {
			full := filepath.Join(base, subfolder, name)
			if isFile(full) {
				return full, true
			}
		}
	}
	return "", false
}

// resolveWiki matches name+".md" as a path suffix over the vault's
// markdown files. Ties go to the shortest path.
func (v *Vault) resolveWiki(name string) (string, bool) {
	files, err := v.MarkdownFiles()
	if err != nil {
		v.logger().Warn("vault scan failed", "root", v.Root, "error", err)
		return "", false
	}
	want := filepath.Clean(name + ".md")
	best := ""
	for _, f := range files {
		if !strings.HasSuffix(filepath.Clean(f), want) {
			continue
		}
		if best == "" || len(f) < len(best) {
			best = f
		}
	}
	return best, best != ""
}

// MarkdownFiles lists every markdown file under the vault root. Hidden
// files and directories are skipped; so is anything under an excluded
// subtree (paths relative to the root).
func (v *Vault) MarkdownFiles(exclude ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != v.Root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(v.Root, path)
		if err != nil {
			return err
		}
		for _, ex := range exclude {
			if strings.HasPrefix(rel, ex+string(filepath.Separator)) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Contents reads a file for the context window. PDFs go through text
// extraction; everything else is decoded as UTF-8 with invalid bytes
// replaced. Failures produce an inline error string so the
// conversation proceeds with the problem visible.
func (v *Vault) Contents(path string) string {
	if strings.HasSuffix(path, ".pdf") {
		text, err := ExtractPDFText(path)
		if err != nil {
			return fmt.Sprintf("Error reading file %s: %v", path, err)
		}
		return text
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading file %s: %v", path, err)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

// FileRef resolves a reference and wraps its contents for the context
// window. Prompt contents are inserted bare with frontmatter stripped.
// A reference that resolves nowhere becomes an inline error string.
func (v *Vault) FileRef(ref, subfolder, kind string) string {
	path, ok := v.ResolvePath(ref, subfolder)
	if !ok {
		return "Error: Cannot find file " + ref
	}
	contents := v.Contents(path)
	if kind == KindPrompt {
		return StripFrontmatter(contents)
	}
	return fmt.Sprintf("<%s><filename>%s</filename>\n<contents>%s</contents></%s>",
		kind, filepath.Base(path), contents, kind)
}

// SystemPrompt reads the named prompt file, resolved as
// {PromptsDir}/{name}.md. A missing prompt is an error the caller
// surfaces on the block rather than something to paper over.
func (v *Vault) SystemPrompt(name string) (string, error) {
	path := filepath.Join(v.PromptsDir, name+".md")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("could not find system prompt %q in %s", name, v.PromptsDir)
		}
		return "", err
	}
	return string(raw), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
