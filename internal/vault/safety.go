package vault

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Path safety for tool-supplied references. Tags typed by the note
// author are trusted; paths chosen by a model are not, so tools run
// them through these checks before touching the vault.

const safePathChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./'() "

// Device names that misbehave as filenames on Windows. Rejected on
// every platform so vaults stay portable.
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateRelPath rejects paths that could escape the vault or surprise
// the filesystem: parent traversal, absolute paths, hidden files,
// reserved device names, and characters outside a conservative
// allowlist.
func ValidateRelPath(path string) error {
	if path == "" || strings.Contains(path, "..") ||
		strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return errors.New(`invalid path: must not contain '..' or start with '/' or '\'`)
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("path cannot be empty or whitespace")
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if windowsReserved[strings.ToUpper(name)] {
		return fmt.Errorf("invalid path: %s is a reserved name", strings.ToUpper(name))
	}
	if strings.HasPrefix(path, ".") {
		return errors.New("hidden files are not allowed")
	}
	var bad []string
	for _, r := range path {
		if !strings.ContainsRune(safePathChars, r) {
			bad = append(bad, fmt.Sprintf("%q", r))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("path contains invalid characters: %s", strings.Join(bad, ", "))
	}
	return nil
}

// EnsureMD appends a .md extension when the name lacks one.
func EnsureMD(name string) string {
	if !strings.HasSuffix(name, ".md") {
		return name + ".md"
	}
	return name
}

// Excluded reports whether any exclusion pattern appears as a
// consecutive run of path components anywhere in path.
func Excluded(path string, patterns []string) bool {
	parts := splitComponents(path)
	for _, pattern := range patterns {
		pp := splitComponents(pattern)
		if len(pp) == 0 || len(pp) > len(parts) {
			continue
		}
		for i := 0; i+len(pp) <= len(parts); i++ {
			if componentsEqual(parts[i:i+len(pp)], pp) {
				return true
			}
		}
	}
	return false
}

func splitComponents(path string) []string {
	return strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
}

func componentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
