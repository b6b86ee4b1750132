// Package document turns tagged spans in plain-text notes into AI
// conversations and splices the answers back in place.
//
// A note opts in with an ai! block holding a reply! marker:
//
//	<ai!>
//	What are the key points in this note?
//	<reply!>
//	</ai!>
//
// Processing strips the marker, resolves content tags (this!, doc!,
// url!, ...) into context, runs the conversation through a backend with
// tool calling, and rewrites the block as a beacon-delimited transcript
// ending in a fresh user turn, ready for the next round. The note
// itself is the conversation store: nothing is kept between passes, so
// a pass over an already-answered file is a no-op.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/inkwell-ai/inkwell/internal/backend"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/events"
	"github.com/inkwell-ai/inkwell/internal/fetch"
	"github.com/inkwell-ai/inkwell/internal/tagparse"
	"github.com/inkwell-ai/inkwell/internal/tools"
	"github.com/inkwell-ai/inkwell/internal/usage"
	"github.com/inkwell-ai/inkwell/internal/vault"
)

// Tag vocabulary. Outer tags are resolved at document level; param tags
// configure a block and are removed from its conversation text; content
// tags expand into context for the model. Escaping covers all three
// groups.
var (
	outerTagNames = []string{"help", "ai", "script"}

	paramTags = []string{
		"reply", "back", "model", "system", "debug",
		"temperature", "max_tokens", "mock", "tools", "think",
	}

	contentTags = []string{"this", "doc", "pdf", "file", "prompt", "url"}
)

// Processor answers ai! blocks in note files. Config and Backends are
// required; every other collaborator is optional and degrades to a
// sensible default (nil Confirm approves everything, nil Vault turns
// file references into inline errors, nil Bus and Usage are no-ops).
type Processor struct {
	Config   *config.Config
	Backends *backend.Registry
	Toolsets tools.Toolsets
	Confirm  tools.Confirmer
	Vault    *vault.Vault
	Fetcher  *fetch.Fetcher
	Bus      *events.Bus
	Usage    *usage.Store
	Logger   *slog.Logger
}

// fileContext is the per-pass state shared by every block in one file.
// doc is the document with ai! blocks removed, the view this! and the
// all mode hand to the model; newDoc is set when an all-mode block
// rewrote the whole document.
type fileContext struct {
	path   string
	doc    string
	newDoc string
}

// ProcessFile runs one pass over the file: every outer tag is resolved
// in place and the result is written back. A failing block renders as
// an in-document error and never stops the other tags. The file is
// rewritten and its mtime bumped even when nothing changed, so external
// watchers see the pass.
func (p *Processor) ProcessFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	content := string(raw)

	docNoAI, _ := tagparse.Process(content, map[string]tagparse.ReplaceFunc{
		"ai": tagparse.Remove,
	}, nil)
	fctx := &fileContext{path: path, doc: docNoAI}

	p.publish(events.KindFileStart, map[string]any{"file": path})

	processed, matches := tagparse.Process(content, p.outerReplacements(ctx, fctx), nil)
	blocks := 0
	for _, m := range matches {
		if m.Name == "ai" {
			blocks++
		}
	}
	if fctx.newDoc != "" {
		processed = fctx.newDoc
	}

	if err := os.WriteFile(path, []byte(processed), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	touchFile(path)

	p.publish(events.KindFileComplete, map[string]any{
		"file":    path,
		"blocks":  blocks,
		"changed": processed != content,
	})
	return nil
}

// outerReplacements builds the document-level replacement table. The
// table is per invocation: the callbacks close over the pass context.
func (p *Processor) outerReplacements(ctx context.Context, fctx *fileContext) map[string]tagparse.ReplaceFunc {
	return map[string]tagparse.ReplaceFunc{
		"help": func(_, _ *string, _ any) string {
			return HelpText
		},
		"ai": func(value, inner *string, _ any) string {
			if inner == nil {
				// Self-closing ai tag, nothing to answer.
				return "<ai!" + deref(value) + ">"
			}
			return p.processBlock(ctx, *inner, fctx, deref(value))
		},
		"script": func(value, _ *string, _ any) string {
			return p.runScript(ctx, deref(value))
		},
	}
}

// NeedsAnswer reports whether a pass over content would do any work:
// true when a help! or script! tag is present, or when any ai! block
// still carries a reply! marker. Callers (watchers, the check command)
// use it to skip files whose tags are all settled.
func NeedsAnswer(content string) bool {
	_, matches := tagparse.Process(content, nil, nil)
	for _, m := range matches {
		for _, name := range outerTagNames {
			if m.Name == name && name != "ai" {
				return true
			}
		}
	}
	for _, m := range matches {
		if m.Name != "ai" || m.Inner == nil {
			continue
		}
		_, inner := tagparse.Process(*m.Inner, nil, nil)
		for _, t := range inner {
			if t.Name == "reply" {
				return true
			}
		}
	}
	return false
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Processor) confirmer() tools.Confirmer {
	if p.Confirm != nil {
		return p.Confirm
	}
	return tools.AutoApprove{}
}

func (p *Processor) publish(kind string, data map[string]any) {
	p.Bus.Publish(events.Event{
		Timestamp: time.Now(),
		Source:    events.SourceProcessor,
		Kind:      kind,
		Data:      data,
	})
}

// wrapAI rebuilds an ai! block around body, preserving the tag's option
// value.
func wrapAI(option, body string) string {
	return "<ai!" + option + ">" + body + "</ai!>"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// touchFile bumps the mtime; watchers key on it and an unchanged write
// may not.
func touchFile(path string) {
	now := time.Now()
	os.Chtimes(path, now, now)
}
