package vault

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter handling for markdown notes. A frontmatter block opens
// with exactly "---" on the first line, closes at the next line that is
// exactly "---", and must parse as YAML; anything else means the
// document has no frontmatter. CRLF line endings are tolerated.

// HasFrontmatter reports whether content opens with a valid frontmatter
// block.
func HasFrontmatter(content string) bool {
	_, _, ok := splitFrontmatter(content)
	return ok
}

// ParseFrontmatter returns the frontmatter fields, or nil when the
// content has no valid frontmatter. An empty block yields an empty map.
func ParseFrontmatter(content string) map[string]any {
	meta, _, ok := splitFrontmatter(content)
	if !ok {
		return nil
	}
	return meta
}

// StripFrontmatter returns the document body with the frontmatter block
// removed. Content without valid frontmatter is returned unchanged.
func StripFrontmatter(content string) string {
	_, body, ok := splitFrontmatter(content)
	if !ok {
		return content
	}
	return body
}

func splitFrontmatter(content string) (meta map[string]any, body string, ok bool) {
	rest, found := strings.CutPrefix(content, "---\n")
	if !found {
		rest, found = strings.CutPrefix(content, "---\r\n")
	}
	if !found {
		return nil, "", false
	}
	offset := 0
	for offset <= len(rest) {
		lineEnd := len(rest)
		next := len(rest) + 1
		if i := strings.IndexByte(rest[offset:], '\n'); i >= 0 {
			lineEnd = offset + i
			next = lineEnd + 1
		}
		if strings.TrimSuffix(rest[offset:lineEnd], "\r") == "---" {
			meta = map[string]any{}
			if src := rest[:offset]; strings.TrimSpace(src) != "" {
				if err := yaml.Unmarshal([]byte(src), &meta); err != nil {
					return nil, "", false
				}
			}
			if next <= len(rest) {
				body = rest[next:]
			}
			return meta, body, true
		}
		offset = next
	}
	return nil, "", false
}
