// Package tagparse extracts custom inline tags from note text. A tag is
// either paired, <name!value>inner</name!>, or self-closing, <name!value>.
// The matcher reports every tag it finds and can substitute matched spans
// through caller-supplied replacement callbacks; everything outside a
// matched span is preserved byte for byte.
//
// The grammar is deliberately forgiving: anything that does not scan as a
// complete opening tag is left alone as literal text, so malformed or
// half-typed tags never corrupt a note.
package tagparse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tag is one matched tag occurrence. Value is nil when the tag carries no
// value, Inner is nil for self-closing tags. Start and End give the span
// of the whole match within the original content, End exclusive.
type Tag struct {
	Name  string
	Value *string
	Inner *string
	Start int
	End   int
}

// ReplaceFunc produces the text that substitutes a matched tag span.
// value and inner mirror Tag.Value and Tag.Inner; ctx is whatever the
// caller threaded through Process.
type ReplaceFunc func(value, inner *string, ctx any) string

// Remove is a ReplaceFunc that deletes the matched span. Useful for
// parameter tags that should be recorded but not rendered.
func Remove(_, _ *string, _ any) string { return "" }

// Process scans content left to right, records every tag match in
// encounter order, and replaces the spans whose tag name appears in reps
// with the callback's return value. Replacement output is never rescanned.
// Content with no matches is returned unchanged with a nil match list.
func Process(content string, reps map[string]ReplaceFunc, ctx any) (string, []Tag) {
	var (
		out      strings.Builder
		matches  []Tag
		last     int
		replaced bool
	)

	i := 0
	for i < len(content) {
		if content[i] != '<' {
			i++
			continue
		}
		tag, ok := matchAt(content, i)
		if !ok {
			i++
			continue
		}
		matches = append(matches, tag)
		if rep, known := reps[tag.Name]; known {
			out.WriteString(content[last:tag.Start])
			out.WriteString(rep(tag.Value, tag.Inner, ctx))
			last = tag.End
			replaced = true
		}
		i = tag.End
	}

	if !replaced {
		return content, matches
	}
	out.WriteString(content[last:])
	return out.String(), matches
}

// matchAt attempts to match one tag starting at the '<' at position start.
// The opening is <name! followed by an optional value and '>'. Several
// value readings can be valid at once (a quoted value that is also a legal
// bare run, say); candidates are tried in a fixed order and the first one
// whose opening is followed somewhere by a same-name </name!> closer wins
// as a paired tag. If no candidate pairs up, the first valid candidate
// stands alone as a self-closing tag.
func matchAt(s string, start int) (Tag, bool) {
	i := start + 1
	j := i
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if !isWordRune(r) {
			break
		}
		j += size
	}
	if j == i || j >= len(s) || s[j] != '!' {
		return Tag{}, false
	}
	name := s[i:j]

	cands := valueCandidates(s, j+1)
	if len(cands) == 0 {
		return Tag{}, false
	}

	closer := "</" + name + "!>"
	for _, c := range cands {
		rel := strings.Index(s[c.end:], closer)
		if rel < 0 {
			continue
		}
		inner := s[c.end : c.end+rel]
		return Tag{
			Name:  name,
			Value: c.value,
			Inner: &inner,
			Start: start,
			End:   c.end + rel + len(closer),
		}, true
	}

	c := cands[0]
	return Tag{Name: name, Value: c.value, Start: start, End: c.end}, true
}

// valueCand is one possible reading of the text between '!' and '>'.
// end indexes just past the closing '>'.
type valueCand struct {
	value *string
	end   int
}

// valueCandidates collects the valid readings at position i, in priority
// order: quoted, bracketed, bare, empty. Each candidate already includes
// the terminating '>'.
func valueCandidates(s string, i int) []valueCand {
	var cands []valueCand
	if v, end, ok := scanQuoted(s, i); ok {
		cands = append(cands, valueCand{&v, end})
	}
	if v, end, ok := scanBracketed(s, i); ok {
		cands = append(cands, valueCand{&v, end})
	}
	if v, end, ok := scanBare(s, i); ok {
		cands = append(cands, valueCand{&v, end})
	}
	if i < len(s) && s[i] == '>' {
		cands = append(cands, valueCand{nil, i + 1})
	}
	return cands
}

// scanQuoted reads a double-quoted value. Backslash escapes any following
// character; the escape is dropped in the returned value (\" becomes ",
// \\ becomes \, \x becomes x). The closing quote must be followed by '>'.
func scanQuoted(s string, i int) (string, int, bool) {
	if i >= len(s) || s[i] != '"' {
		return "", 0, false
	}
	var val strings.Builder
	j := i + 1
	for j < len(s) {
		switch s[j] {
		case '\\':
			if j+1 >= len(s) {
				return "", 0, false
			}
			val.WriteByte(s[j+1])
			j += 2
		case '"':
			if j+1 < len(s) && s[j+1] == '>' {
				return val.String(), j + 2, true
			}
			return "", 0, false
		default:
			val.WriteByte(s[j])
			j++
		}
	}
	return "", 0, false
}

// scanBracketed reads a [[...]] value, stopping at the first ]]. The
// brackets stay part of the value so wiki-style links survive verbatim.
func scanBracketed(s string, i int) (string, int, bool) {
	if !strings.HasPrefix(s[i:], "[[") {
		return "", 0, false
	}
	rel := strings.Index(s[i+2:], "]]")
	if rel < 0 {
		return "", 0, false
	}
	end := i + 2 + rel + 2
	if end >= len(s) || s[end] != '>' {
		return "", 0, false
	}
	return s[i:end], end + 1, true
}

// scanBare reads an unquoted value: a run of characters excluding
// whitespace and '>', except that the two-byte sequence backslash-space
// joins the run and decodes to a plain space.
func scanBare(s string, i int) (string, int, bool) {
	var val strings.Builder
	j := i
	for j < len(s) {
		if s[j] == '\\' && j+1 < len(s) && s[j+1] == ' ' {
			val.WriteByte(' ')
			j += 2
			continue
		}
		if s[j] == '>' || isSpace(s[j]) {
			break
		}
		val.WriteByte(s[j])
		j++
	}
	if j == i || j >= len(s) || s[j] != '>' {
		return "", 0, false
	}
	return val.String(), j + 1, true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
