package convo

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/tagparse"
)

// FormatError reports a transcript that does not parse into a well-formed
// conversation. Messages holds whatever was built before the violation,
// for diagnostics.
type FormatError struct {
	Reason   string
	Messages []Message
}

func (e *FormatError) Error() string {
	if len(e.Messages) == 0 {
		return "conversation format: " + e.Reason
	}
	var b strings.Builder
	fmt.Fprintf(&b, "conversation format: %s. Messages:\n", e.Reason)
	for i, m := range e.Messages {
		fmt.Fprintf(&b, "Message %d: %s - %s\n", i, m.Role, preview(m))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// preview joins a message's text items and truncates for error output.
func preview(m Message) string {
	var parts []string
	for _, c := range m.Content {
		if c.Type == ContentText && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	s := strings.Join(parts, " ")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

// ImageResolver loads an image referenced from a user turn. Implementations
// validate the file and return base64 content ready for a backend.
type ImageResolver interface {
	ResolveImage(path string) (Image, error)
}

// Parser turns transcripts into message lists. The zero value works;
// without an ImageResolver every image! reference is skipped with a
// warning.
type Parser struct {
	Images ImageResolver
	Logger *slog.Logger
}

// Parse converts a transcript with the zero Parser.
func Parse(transcript string) ([]Message, error) {
	return Parser{}.Parse(transcript)
}

// Parse converts a beacon-delimited transcript into the message list it
// encodes. Thought spans and token markers are stripped first; the text
// before the first AI beacon is the opening user turn; each AI section
// optionally carries tool sections and a following user turn. The result
// must start and end with a user message or a *FormatError is returned.
func (p Parser) Parse(transcript string) ([]Message, error) {
	txt := stripThoughts(transcript)
	sections := strings.Split(txt, BeaconAI)

	var messages []Message

	// The leading section is user content. A user marker may appear in it
	// only with nothing before it.
	first := strings.Split(sections[0], BeaconMe)
	if len(first) == 1 {
		first = []string{"", first[0]}
	}
	if first[0] != "" {
		return nil, &FormatError{Reason: "content before the first user marker"}
	}
	if strings.TrimSpace(first[1]) != "" {
		messages = append(messages, p.userMessage(first[1]))
	}

	for _, section := range sections[1:] {
		parts := strings.Split(section, BeaconMe)
		if strings.TrimSpace(parts[0]) != "" {
			assistant, results, err := p.assistantMessage(parts[0])
			if err != nil {
				return nil, err
			}
			messages = append(messages, assistant)
			if len(results) > 0 {
				content := make([]Content, 0, len(results))
				for _, tr := range results {
					content = append(content, ToolResultContent(tr))
				}
				messages = append(messages, Message{Role: RoleUser, Content: content})
			}
		}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			messages = append(messages, p.userMessage(parts[1]))
		}
	}

	if len(messages) == 0 {
		return nil, &FormatError{Reason: "conversation is empty"}
	}
	if messages[0].Role != RoleUser {
		return nil, &FormatError{Reason: "conversation must start with a user message", Messages: messages}
	}
	if messages[len(messages)-1].Role != RoleUser {
		return nil, &FormatError{Reason: "conversation must end with a user message", Messages: messages}
	}
	return messages, nil
}

// stripThoughts removes every |THOUGHT|...|/THOUGHT| span including the
// markers. An unterminated span is left alone.
func stripThoughts(txt string) string {
	for {
		start := strings.Index(txt, BeaconThought)
		if start < 0 {
			return txt
		}
		rel := strings.Index(txt[start+len(BeaconThought):], BeaconThoughtEnd)
		if rel < 0 {
			return txt
		}
		end := start + len(BeaconThought) + rel + len(BeaconThoughtEnd)
		txt = txt[:start] + txt[end:]
	}
}

// StripTokenUsage removes the first |TOKENS|...|== marker, if any.
func StripTokenUsage(txt string) string {
	start := strings.Index(txt, BeaconTokens)
	if start < 0 {
		return txt
	}
	rel := strings.Index(txt[start:], BeaconTokensEnd)
	if rel < 0 {
		return txt
	}
	return txt[:start] + txt[start+rel+len(BeaconTokensEnd):]
}

// assistantMessage parses one assistant section into its message plus the
// tool results that belong in the follow-up user message. Text between or
// after tool sections stays visible in the note but is not re-sent; only
// the leading fragment becomes a text item.
func (p Parser) assistantMessage(part string) (Message, []ToolResult, error) {
	part = StripTokenUsage(part)
	fragments := strings.Split(part, BeaconToolStart)

	var content []Content
	var results []ToolResult

	if lead := strings.TrimSpace(fragments[0]); lead != "" {
		content = append(content, TextContent(lead))
	}
	for _, frag := range fragments[1:] {
		section := BeaconToolStart + frag
		end := strings.Index(section, BeaconToolEnd)
		if end < 0 {
			// Unterminated tool section, likely an interrupted run.
			continue
		}
		section = section[:end+len(BeaconToolEnd)]
		call, result, err := parseToolSection(section)
		if err != nil {
			return Message{}, nil, err
		}
		content = append(content, ToolUseContent(call))
		results = append(results, result)
	}
	return Message{Role: RoleAssistant, Content: content}, results, nil
}

// wireResult is the JSON shape of a serialized tool result.
type wireResult struct {
	Result any     `json:"result"`
	Error  *string `json:"error"`
}

// parseToolSection reads one |TOOL_START|...|TOOL_END| section in its
// fixed line format: ID and Tool lines, then Arguments: and Result: each
// followed by a fenced JSON block.
func parseToolSection(section string) (ToolCall, ToolResult, error) {
	lines := strings.Split(strings.TrimSpace(section), "\n")
	if len(lines) < 11 {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section too short: %d lines", len(lines))
	}

	id, ok := strings.CutPrefix(lines[1], "ID: ")
	if !ok {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: missing ID line, got %q", lines[1])
	}
	name, ok := strings.CutPrefix(lines[2], "Tool: ")
	if !ok {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: missing Tool line, got %q", lines[2])
	}

	argIdx := indexOfLine(lines, "Arguments:")
	resIdx := indexOfLine(lines, "Result:")
	if argIdx < 0 || resIdx < 0 {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: missing Arguments or Result marker")
	}
	if argIdx+2 > resIdx-1 || resIdx+2 > len(lines)-2 {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: malformed fenced blocks")
	}

	var arguments map[string]any
	argsJSON := strings.Join(lines[argIdx+2:resIdx-1], "\n")
	if err := json.Unmarshal([]byte(argsJSON), &arguments); err != nil {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: parse arguments: %w", err)
	}
	var wire wireResult
	resultJSON := strings.Join(lines[resIdx+2:len(lines)-2], "\n")
	if err := json.Unmarshal([]byte(resultJSON), &wire); err != nil {
		return ToolCall{}, ToolResult{}, fmt.Errorf("tool section: parse result: %w", err)
	}

	call := ToolCall{ID: id, Name: name, Arguments: arguments}
	result := ToolResult{Name: name, ToolCallID: id, Result: wire.Result}
	if wire.Error != nil {
		result.Error = *wire.Error
	}
	return call, result, nil
}

func indexOfLine(lines []string, want string) int {
	for i, l := range lines {
		if l == want {
			return i
		}
	}
	return -1
}

// userMessage builds a user turn: image! tags are pulled out of the text
// and resolved to inline images (failures are logged and skipped), then
// the remaining trimmed text is appended as the final item. The text item
// is always present, even when empty, so an image-only turn still reads
// as user content.
func (p Parser) userMessage(text string) Message {
	processed, matches := tagparse.Process(text, map[string]tagparse.ReplaceFunc{
		"image": tagparse.Remove,
	}, nil)

	var content []Content
	for _, m := range matches {
		if m.Name != "image" {
			continue
		}
		if m.Value == nil {
			p.logger().Warn("image tag without a path, skipping")
			continue
		}
		if p.Images == nil {
			p.logger().Warn("no image resolver configured, skipping image", "path", *m.Value)
			continue
		}
		img, err := p.Images.ResolveImage(*m.Value)
		if err != nil {
			p.logger().Warn("skipping image", "path", *m.Value, "error", err)
			continue
		}
		content = append(content, ImageContent(img))
	}
	content = append(content, TextContent(strings.TrimSpace(processed)))
	return Message{Role: RoleUser, Content: content}
}

func (p Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
