package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/inkwell-ai/inkwell/internal/fetch"
)

// readFileCharLimit caps read_file output, about the size of a small book.
const readFileCharLimit = 20_000

// SystemConfig wires the system toolset's external pieces.
type SystemConfig struct {
	// Fetcher serves fetch_webpage. Nil disables the tool at call time.
	Fetcher *fetch.Fetcher
	// CommandTimeout bounds run_command. Zero means 30 seconds.
	CommandTimeout time.Duration
	// MaxOutputBytes caps captured command output. Zero means 100 KB.
	MaxOutputBytes int
}

type systemTools struct {
	cfg SystemConfig
}

// System builds the general-purpose toolset: file IO, shell commands,
// and web fetching. Tools that modify the system are marked unsafe so
// they route through the Confirmer.
func System(cfg SystemConfig) []Tool {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = 100 * 1024
	}
	s := &systemTools{cfg: cfg}

	return []Tool{
		{
			Name:        "save_file",
			Description: "Save a file to disk. Can optionally overwrite existing files, but this should be used with extreme caution.",
			Parameters: map[string]Param{
				"path":      {Type: "string", Description: "The file path", Required: true},
				"content":   {Type: "string", Description: "The content to write", Required: true},
				"overwrite": {Type: "boolean", Description: "Whether to allow overwriting existing files (defaults to false). Use with extreme caution!"},
			},
			Func: s.saveFile,
		},
		{
			Name:        "run_command",
			Description: "Run a command on the system and return its output. Whenever possible, try and use other tools instead of this one.",
			Parameters: map[string]Param{
				"command": {Type: "string", Description: "The command to run", Required: true},
			},
			Func: s.runCommand,
		},
		{
			Name:        "read_file",
			Description: "Read the contents of a file (limited to the first 20,000 characters)",
			Parameters: map[string]Param{
				"path": {Type: "string", Description: "The file path", Required: true},
			},
			Safe: true,
			Func: s.readFile,
		},
		{
			Name:        "list_directory",
			Description: "Lists the contents of a directory",
			Parameters: map[string]Param{
				"path": {Type: "string", Description: "The directory path", Required: true},
			},
			Safe: true,
			Func: s.listDirectory,
		},
		{
			Name:        "copy_file",
			Description: "Copy or move a file from source to destination. By default, copies the file; can move (delete original) if specified. Can optionally overwrite existing destination files, but this should be used with extreme caution.",
			Parameters: map[string]Param{
				"source":      {Type: "string", Description: "The source file path", Required: true},
				"destination": {Type: "string", Description: "The destination file path", Required: true},
				"move":        {Type: "boolean", Description: "Whether to move the file instead of copying (defaults to false)"},
				"overwrite":   {Type: "boolean", Description: "Whether to allow overwriting existing destination files (defaults to false). Use with extreme caution!"},
			},
			Func: s.copyFile,
		},
		{
			Name:        "fetch_webpage",
			Description: "Fetch content from a webpage and convert it to markdown or return raw HTML",
			Parameters: map[string]Param{
				"url":      {Type: "string", Description: "The URL to fetch content from", Required: true},
				"raw_html": {Type: "boolean", Description: "Whether to return the raw HTML instead of converting to markdown (defaults to false)"},
			},
			Safe: true,
			Func: s.fetchWebpage,
		},
	}
}

func (s *systemTools) saveFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	overwrite, _ := args["overwrite"].(bool)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Sprintf("Error: File %s already exists. Cannot overwrite existing files unless overwrite is true.", path), nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, err
	}
	return fmt.Sprintf("File saved to %s", path), nil
}

func (s *systemTools) runCommand(ctx context.Context, args map[string]any) (any, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	output := truncateOutput(stdout.String(), s.cfg.MaxOutputBytes)
	if errText := truncateOutput(stderr.String(), s.cfg.MaxOutputBytes); errText != "" {
		output += "\nErrors:\n" + errText
	}

	if ctx.Err() == context.DeadlineExceeded {
		return output + fmt.Sprintf("\n[Command timed out after %s]", s.cfg.CommandTimeout), nil
	}
	if runErr != nil {
		// Nonzero exit is an answer, not a failure; stderr carries it.
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, runErr
		}
	}
	if output == "" {
		return "Command completed with no output", nil
	}
	return output, nil
}

func (s *systemTools) readFile(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if runes := []rune(content); len(runes) > readFileCharLimit {
		content = string(runes[:readFileCharLimit]) + "\n... (file truncated due to length)"
	}
	return content, nil
}

func (s *systemTools) listDirectory(ctx context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *systemTools) copyFile(ctx context.Context, args map[string]any) (any, error) {
	source, _ := args["source"].(string)
	destination, _ := args["destination"].(string)
	move, _ := args["move"].(bool)
	overwrite, _ := args["overwrite"].(bool)
	if source == "" || destination == "" {
		return nil, fmt.Errorf("source and destination are required")
	}

	if _, err := os.Stat(source); err != nil {
		return fmt.Sprintf("Error: Source file %s does not exist.", source), nil
	}
	if _, err := os.Stat(destination); err == nil && !overwrite {
		return fmt.Sprintf("Error: Destination file %s already exists. Cannot overwrite existing files unless overwrite is true.", destination), nil
	}
	if dir := filepath.Dir(destination); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	if move {
		if err := os.Rename(source, destination); err != nil {
			// Cross-device moves need a copy then delete.
			if err := copyContents(source, destination); err != nil {
				return nil, err
			}
			if err := os.Remove(source); err != nil {
				return nil, err
			}
		}
		return fmt.Sprintf("File moved from %s to %s", source, destination), nil
	}

	if err := copyContents(source, destination); err != nil {
		return nil, err
	}
	return fmt.Sprintf("File copied from %s to %s", source, destination), nil
}

func (s *systemTools) fetchWebpage(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if s.cfg.Fetcher == nil {
		return nil, fmt.Errorf("web fetching is not configured")
	}
	if raw, _ := args["raw_html"].(bool); raw {
		return s.cfg.Fetcher.FetchRaw(ctx, url)
	}
	return s.cfg.Fetcher.Markdown(ctx, url, 0)
}

func copyContents(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// truncateOutput truncates output to maxBytes, adding a note if truncated.
func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n\n[... output truncated ...]"
}
