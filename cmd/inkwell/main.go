// Inkwell answers ai! tags embedded in plain-text notes.
//
// A note opts in with a block like:
//
//	<ai!>
//	Summarize this note.
//	<reply!>
//	</ai!>
//
// and a process run expands it, in place, into a recorded conversation
// the next save can continue. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	inkwell process <file>...   Answer every armed block in the files
//	inkwell check <file>        Exit 0 when the file has something to answer
//	inkwell usage               Show token accounting totals
//	inkwell version             Print version and build information
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/inkwell-ai/inkwell/internal/backend"
	"github.com/inkwell-ai/inkwell/internal/buildinfo"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/document"
	"github.com/inkwell-ai/inkwell/internal/events"
	"github.com/inkwell-ai/inkwell/internal/fetch"
	"github.com/inkwell-ai/inkwell/internal/tools"
	"github.com/inkwell-ai/inkwell/internal/usage"
	"github.com/inkwell-ai/inkwell/internal/vault"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit, os.Stdout, and os.Args out of the application logic so the
// whole command surface can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the global flags shared by every subcommand.
type cliFlags struct {
	configPath string
	logLevel   string
	vaultRoot  string
}

// run is the real entry point for the inkwell command. All OS-level
// dependencies are injected: ctx bounds the process (cancelling it
// interrupts an in-flight backend call), stdout receives progress and
// report output, stderr receives structured logs, and args is
// os.Args[1:]. Arguments are parsed by hand; the flag package's global
// state would keep run from being called concurrently in tests, and
// three flags do not justify a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var flags cliFlags
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			flags.configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			flags.configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-log-level" && i+1 < len(args):
			flags.logLevel = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-log-level="):
			flags.logLevel = strings.TrimPrefix(args[i], "-log-level=")
		case args[i] == "-vault" && i+1 < len(args):
			flags.vaultRoot = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-vault="):
			flags.vaultRoot = strings.TrimPrefix(args[i], "-vault=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "process":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: inkwell process <file>...")
		}
		return runProcess(ctx, stdout, stderr, flags, cmdArgs)
	case "check":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("usage: inkwell check <file>")
		}
		return runCheck(stdout, cmdArgs[0])
	case "usage":
		return runUsage(stdout, flags)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runProcess handles "inkwell process <file>...": one full pass per
// file, in order. A failing file is reported and the remaining files
// still run; the first error (if any) decides the exit code.
func runProcess(ctx context.Context, stdout io.Writer, stderr io.Writer, flags cliFlags, files []string) error {
	level := slog.LevelInfo
	if flags.logLevel != "" {
		var err error
		if level, err = config.ParseLogLevel(flags.logLevel); err != nil {
			return err
		}
	}
	logger := newLogger(stderr, level)

	cfg, cfgPath, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Debug("config loaded", "path", cfgPath)
	} else {
		logger.Debug("no config file found, using defaults")
	}

	// The flag wins over the file; the file wins over the default.
	if flags.logLevel == "" && cfg.LogLevel != "" {
		if level, err = config.ParseLogLevel(cfg.LogLevel); err != nil {
			return err
		}
		logger = newLogger(stderr, level)
	}
	if flags.vaultRoot != "" {
		pointAtVault(cfg, flags.vaultRoot)
	}

	// Ctrl-C cancels the in-flight backend call. The partial transcript
	// already appended to the note stays valid and can be reprocessed.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.New()
	confirm := &stdinConfirmer{in: bufio.NewReader(os.Stdin), out: stderr}
	proc, cleanup := buildProcessor(cfg, logger, bus, confirm)
	defer cleanup()

	ch := bus.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(stdout, ch)
	}()

	var errs []error
	for _, file := range files {
		if err := proc.ProcessFile(ctx, file); err != nil {
			logger.Error("file pass failed", "file", file, "error", err)
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}

	bus.Unsubscribe(ch)
	<-done
	return errors.Join(errs...)
}

// runCheck handles "inkwell check <file>". It exits 0 when the file
// contains something a process run would answer, non-zero otherwise,
// so a watcher can gate process invocations on it:
//
//	inkwell check note.md 2>/dev/null && inkwell process note.md
func runCheck(stdout io.Writer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !document.NeedsAnswer(string(raw)) {
		return fmt.Errorf("nothing to answer in %s", path)
	}
	fmt.Fprintf(stdout, "%s has blocks to answer\n", path)
	return nil
}

// runUsage prints token accounting totals for the last 30 days.
func runUsage(stdout io.Writer, flags cliFlags) error {
	cfg, _, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if cfg.Usage.DBPath == "" {
		return errors.New("usage history is not configured")
	}
	store, err := usage.Open(cfg.Usage.DBPath)
	if err != nil {
		return fmt.Errorf("open usage history: %w", err)
	}
	defer store.Close()

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	sum, err := store.Summary(start, end)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Last 30 days: %d blocks, %d rounds\n", sum.TotalBlocks, sum.TotalRounds)
	fmt.Fprintf(stdout, "  input tokens:  %d\n", sum.TotalInputTokens)
	fmt.Fprintf(stdout, "  output tokens: %d\n", sum.TotalOutputTokens)

	byModel, err := store.SummaryByModel(start, end)
	if err != nil {
		return err
	}
	if len(byModel) > 0 {
		models := make([]string, 0, len(byModel))
		for m := range byModel {
			models = append(models, m)
		}
		sort.Strings(models)

		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "By model:")
		for _, m := range models {
			s := byModel[m]
			fmt.Fprintf(stdout, "  %-14s %4d blocks %10d in %10d out\n",
				m, s.TotalBlocks, s.TotalInputTokens, s.TotalOutputTokens)
		}
	}
	return nil
}

// runVersion prints build metadata.
func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// inkwell is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Inkwell - AI conversations in plain-text notes")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: inkwell [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  process <file>...  Answer every armed ai! block in the files")
	fmt.Fprintln(w, "  check <file>       Exit 0 when the file has something to answer")
	fmt.Fprintln(w, "  usage              Show token accounting for the last 30 days")
	fmt.Fprintln(w, "  version            Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>     Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -log-level <lvl>   trace, debug, info, warn, or error")
	fmt.Fprintln(w, "  -vault <dir>       Vault root, overrides the config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, $XDG_CONFIG_HOME/inkwell/config.yaml, ~/.config/inkwell/config.yaml")
	return nil
}

// buildProcessor wires a document processor from configuration. The
// returned cleanup closes the usage store. The registry carries only
// the deterministic mock; real backends are registered by programs
// embedding the library, so without one a block naming a live model
// renders an in-document resolution error.
func buildProcessor(cfg *config.Config, logger *slog.Logger, bus *events.Bus, confirm tools.Confirmer) (*document.Processor, func()) {
	fetcher := fetch.NewWithLimits(
		time.Duration(cfg.Fetch.TimeoutSec)*time.Second,
		int64(cfg.Fetch.MaxBytes),
	)

	var v *vault.Vault
	if cfg.Vault.Root != "" {
		v = vault.New(cfg.Vault.Root, cfg.Vault.SearchPaths...)
		v.PromptsDir = cfg.Vault.PromptsDir
		v.ScriptsDir = cfg.Vault.ScriptsDir
		v.Logger = logger
	} else {
		logger.Warn("no vault configured, file references and scripts are unavailable")
	}

	toolsets := tools.Toolsets{
		"system": tools.Without(tools.System(tools.SystemConfig{
			Fetcher:        fetcher,
			CommandTimeout: time.Duration(cfg.Tools.CommandTimeoutSec) * time.Second,
			MaxOutputBytes: cfg.Tools.MaxOutputKB * 1024,
		}), cfg.Tools.Exclude...),
	}
	if v != nil {
		toolsets["notes"] = tools.Without(tools.Notes(tools.NotesConfig{
			Vault:   v,
			Exclude: cfg.Vault.Exclude,
		}), cfg.Tools.Exclude...)
	}

	cleanup := func() {}
	var store *usage.Store
	if cfg.Usage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Usage.DBPath), 0755); err != nil {
			logger.Warn("usage history disabled", "error", err)
		} else if st, err := usage.Open(cfg.Usage.DBPath); err != nil {
			logger.Warn("usage history disabled", "error", err)
		} else {
			store = st
			cleanup = func() { st.Close() }
		}
	}

	proc := &document.Processor{
		Config:   cfg,
		Backends: backend.NewRegistry(),
		Toolsets: toolsets,
		Confirm:  confirm,
		Vault:    v,
		Fetcher:  fetcher,
		Bus:      bus,
		Usage:    store,
		Logger:   logger,
	}
	return proc, cleanup
}

// printProgress renders bus events as indented one-line progress
// output. It returns when the subscription channel closes.
func printProgress(w io.Writer, ch <-chan events.Event) {
	for e := range ch {
		switch e.Kind {
		case events.KindFileStart:
			fmt.Fprintf(w, "%v\n", e.Data["file"])
		case events.KindBlockStart:
			fmt.Fprintf(w, "  answering with %v\n", e.Data["model"])
		case events.KindModelCall:
			fmt.Fprintf(w, "  round %v\n", e.Data["round"])
		case events.KindToolCall:
			fmt.Fprintf(w, "    tool %v\n", e.Data["tool"])
		case events.KindToolDone:
			status := "ok"
			if ok, _ := e.Data["ok"].(bool); !ok {
				status = "failed"
			}
			fmt.Fprintf(w, "    tool %v %s (%vms)\n", e.Data["tool"], status, e.Data["duration_ms"])
		case events.KindBlockComplete:
			fmt.Fprintf(w, "  done: %v rounds, %v in / %v out tokens\n",
				e.Data["rounds"], e.Data["tokens_in"], e.Data["tokens_out"])
		case events.KindBlockError:
			fmt.Fprintf(w, "  failed: %v\n", e.Data["error"])
		case events.KindFileComplete:
			if changed, _ := e.Data["changed"].(bool); changed {
				fmt.Fprintf(w, "updated %v (%v blocks)\n", e.Data["file"], e.Data["blocks"])
			} else {
				fmt.Fprintf(w, "no changes in %v\n", e.Data["file"])
			}
		}
	}
}

// newLogger builds the structured logger. Logs go to stderr so process
// stdout carries only progress and report output.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. An
// explicit path must exist; otherwise the default locations are
// searched and a miss falls back to built-in defaults, since process
// and check are useful with nothing but a file argument.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// pointAtVault retargets the config at a different vault root. The
// prompts and scripts directories follow the new root; stale paths
// derived from another vault would be worse than recomputed ones.
func pointAtVault(cfg *config.Config, root string) {
	cfg.Vault.Root = root
	cfg.Vault.PromptsDir = filepath.Join(root, "Prompts")
	cfg.Vault.ScriptsDir = filepath.Join(root, "scripts")
}

// stdinConfirmer gates unsafe tools on a terminal prompt. EOF and read
// errors count as refusals, so a run with a closed stdin denies unsafe
// tools instead of hanging.
type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c *stdinConfirmer) Confirm(ctx context.Context, t tools.Tool, args map[string]any) (bool, string) {
	fmt.Fprintf(c.out, "Allow tool %s %s? [y/N] ", t.Name, formatArgs(args))
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, ""
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, ""
	default:
		return false, ""
	}
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
