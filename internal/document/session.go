package document

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/inkwell-ai/inkwell/internal/events"
)

// Session streams live feedback into the note while a block runs. It
// owns one span of the file, the text the block currently reads as;
// each Append re-reads the file, swaps the known span for the extended
// one, and writes the whole file back, so edits elsewhere in the note
// survive a run. Appends are strictly ordered; an interrupted run
// leaves the last completed append on disk as valid beacon text.
type Session struct {
	path    string
	current string
	bus     *events.Bus
	log     *slog.Logger
}

// NewSession opens a session over the span that currently reads as
// current in the file at path.
func NewSession(path, current string, bus *events.Bus, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{path: path, current: current, bus: bus, log: log}
}

// Append extends the session's span with text and writes it through to
// the file. When the note changed underneath and the span is gone, the
// append degrades to a warning; the final splice comes from the
// processor's own write, not from here.
func (s *Session) Append(text string) error {
	updated := s.current + text

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("live append: %w", err)
	}
	content := string(raw)
	if !strings.Contains(content, s.current) {
		s.log.Warn("live append target missing", "file", s.path)
	}
	full := strings.Replace(content, s.current, updated, 1)
	if err := os.WriteFile(s.path, []byte(full), 0644); err != nil {
		return fmt.Errorf("live append: %w", err)
	}
	now := time.Now()
	os.Chtimes(s.path, now, now)
	s.current = updated

	s.bus.Publish(events.Event{
		Timestamp: now,
		Source:    events.SourceSession,
		Kind:      events.KindSessionAppend,
		Data:      map[string]any{"file": s.path, "bytes": len(text)},
	})
	return nil
}
