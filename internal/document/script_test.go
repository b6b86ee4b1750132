package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkwell-ai/inkwell/internal/backend"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/vault"
)

// newScriptProcessor returns a processor whose vault has a populated
// scripts directory.
func newScriptProcessor(t *testing.T, scripts map[string]string) *Processor {
	t.Helper()
	dir := t.TempDir()
	scriptsDir := filepath.Join(dir, "scripts")
	if err := os.MkdirAll(scriptsDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, body := range scripts {
		mode := os.FileMode(0644)
		if !strings.HasSuffix(name, ".md") {
			mode = 0755
		}
		if err := os.WriteFile(filepath.Join(scriptsDir, name), []byte(body), mode); err != nil {
			t.Fatal(err)
		}
	}

	v := vault.New(dir)
	v.ScriptsDir = scriptsDir
	return &Processor{
		Config:   config.Default(),
		Backends: backend.NewRegistry(),
		Vault:    v,
		Logger:   discardLogger(),
	}
}

func TestRunScriptMarkdownShell(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"hello.md": "# Greeting\n\n```sh\necho hello\n```\n",
	})
	if got := p.runScript(context.Background(), "hello.md"); got != "hello\n" {
		t.Errorf("runScript = %q, want %q", got, "hello\n")
	}
}

func TestRunScriptExtensionlessName(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"daily.md": "```sh\necho daily\n```\n",
	})
	if got := p.runScript(context.Background(), "daily"); got != "daily\n" {
		t.Errorf("runScript = %q, want %q", got, "daily\n")
	}
}

func TestRunScriptFirstFenceOnly(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"multi.md": "```sh\necho first\n```\n\ntext\n\n```sh\necho second\n```\n",
	})
	if got := p.runScript(context.Background(), "multi"); got != "first\n" {
		t.Errorf("runScript = %q, want only the first fence output", got)
	}
}

func TestRunScriptMissing(t *testing.T) {
	p := newScriptProcessor(t, nil)
	got := p.runScript(context.Background(), "absent")
	if !strings.HasPrefix(got, "Error: Script 'absent.md' not found in scripts folder") {
		t.Errorf("runScript = %q", got)
	}
}

func TestRunScriptNoCodeBlock(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"plain.md": "# Just prose\n\nNo fences here.\n",
	})
	if got := p.runScript(context.Background(), "plain"); got != "Error: No code block found in 'plain.md'" {
		t.Errorf("runScript = %q", got)
	}
}

func TestRunScriptUnsupportedLanguage(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"gem.md": "```ruby\nputs 'hi'\n```\n",
	})
	if got := p.runScript(context.Background(), "gem"); got != "Error: Unsupported script language 'ruby' in 'gem.md'" {
		t.Errorf("runScript = %q", got)
	}
}

func TestRunScriptDirectExecutable(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"run.sh": "#!/bin/sh\necho direct\n",
	})
	if got := p.runScript(context.Background(), "run.sh"); got != "direct\n" {
		t.Errorf("runScript = %q, want %q", got, "direct\n")
	}
}

func TestRunScriptFailure(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"bad.md": "```sh\necho oops >&2\nexit 3\n```\n",
	})
	got := p.runScript(context.Background(), "bad")
	if !strings.HasPrefix(got, "Error executing script 'bad.md':") {
		t.Errorf("runScript = %q", got)
	}
	if !strings.Contains(got, "stderr: oops") {
		t.Errorf("stderr not captured: %q", got)
	}
}

func TestRunScriptTimeout(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"slow.md": "```sh\nsleep 5\n```\n",
	})
	p.Config.Processing.ScriptTimeoutSec = 1
	got := p.runScript(context.Background(), "slow")
	if got != "Error: Script 'slow.md' timed out after 1s" {
		t.Errorf("runScript = %q", got)
	}
}

func TestRunScriptNoVault(t *testing.T) {
	p := &Processor{Config: config.Default(), Backends: backend.NewRegistry(), Logger: discardLogger()}
	if got := p.runScript(context.Background(), "x"); got != "Error: No scripts folder configured" {
		t.Errorf("runScript = %q", got)
	}
}

func TestProcessFileScriptTag(t *testing.T) {
	p := newScriptProcessor(t, map[string]string{
		"greet.md": "```sh\necho hi there\n```\n",
	})
	path := writeNote(t, "Output: <script!greet>")

	if err := p.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	if got := readNote(t, path); got != "Output: hi there\n" {
		t.Errorf("note = %q", got)
	}
}
