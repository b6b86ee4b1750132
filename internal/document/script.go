package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// runScript resolves a script! tag: the value names a script in the
// vault's scripts directory and the tag is replaced by its stdout.
// Markdown scripts (.md suffix or no extension) run their first fenced
// code block through the fence language's interpreter; anything else
// executes directly. Every failure comes back as an in-document error
// string, never an aborted pass.
func (p *Processor) runScript(ctx context.Context, name string) string {
	if p.Vault == nil || p.Vault.ScriptsDir == "" {
		return "Error: No scripts folder configured"
	}
	scriptsDir := p.Vault.ScriptsDir

	isMarkdown := strings.HasSuffix(name, ".md") || !strings.Contains(name, ".")
	if isMarkdown && !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	path := filepath.Join(scriptsDir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("Error: Script '%s' not found in scripts folder: %s", name, scriptsDir)
	}

	var timeout time.Duration
	if sec := p.Config.Processing.ScriptTimeoutSec; sec > 0 {
		timeout = time.Duration(sec) * time.Second
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	switch {
	case isMarkdown:
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		lang, code, ok := firstFencedBlock(src)
		if !ok {
			return fmt.Sprintf("Error: No code block found in '%s'", name)
		}
		switch lang {
		case "python", "python3", "py":
			cmd = exec.CommandContext(ctx, "python3", "-c", code)
		case "sh", "bash", "shell", "":
			cmd = exec.CommandContext(ctx, "sh", "-c", code)
		default:
			return fmt.Sprintf("Error: Unsupported script language '%s' in '%s'", lang, name)
		}
	case strings.HasSuffix(name, ".py"):
		cmd = exec.CommandContext(ctx, "python3", path)
	default:
		cmd = exec.CommandContext(ctx, path)
	}
	cmd.Dir = scriptsDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("Error: Script '%s' timed out after %s", name, timeout)
	}
	if err != nil {
		return fmt.Sprintf("Error executing script '%s':\nstdout: %s\nstderr: %s",
			name, stdout.String(), stderr.String())
	}
	return stdout.String()
}

// firstFencedBlock returns the language and body of the first fenced
// code block in a markdown document.
func firstFencedBlock(src []byte) (lang, code string, ok bool) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var fence *ast.FencedCodeBlock
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if f, isFence := n.(*ast.FencedCodeBlock); isFence {
			fence = f
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if fence == nil {
		return "", "", false
	}

	if info := fence.Language(src); info != nil {
		lang = string(info)
	}
	var body bytes.Buffer
	lines := fence.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		body.Write(seg.Value(src))
	}
	return lang, body.String(), true
}
