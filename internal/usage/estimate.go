// Package usage estimates token counts for conversations and keeps a
// persistent history of completed block runs. Estimation is character
// based, four characters per token rounded half to even, and is only
// contracted to be deterministic and self-consistent, not to match any
// provider's tokenizer.
package usage

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/inkwell-ai/inkwell/internal/convo"
	"github.com/inkwell-ai/inkwell/internal/tagparse"
)

// counter accumulates characters per direction. Tokens are derived once
// at the end so rounding never compounds across segments.
type counter struct {
	in  int
	out int
}

func (c *counter) input(s string)  { c.in += utf8.RuneCountInString(s) }
func (c *counter) output(s string) { c.out += utf8.RuneCountInString(s) }

func (c *counter) tokens() (in, out int) {
	return tokensFor(c.in), tokensFor(c.out)
}

// tokensFor converts a character count to tokens at four characters per
// token, rounding half to even: 2 chars estimate to 0, 6 chars to 2.
func tokensFor(chars int) int {
	return int(math.RoundToEven(float64(chars) / 4))
}

// EstimateMessages estimates input and output tokens for a structured
// conversation. The system prompt, user text, tool arguments, and tool
// results count as input; assistant text counts as output. Images are
// not estimated.
func EstimateMessages(msgs []convo.Message, systemPrompt string) (in, out int) {
	var c counter
	c.countMessages(msgs, systemPrompt)
	return c.tokens()
}

// EstimateWithResponse estimates a conversation plus a final response
// that has not been folded into the message list yet. The response and
// its reasoning count as output.
func EstimateWithResponse(msgs []convo.Message, systemPrompt, response, reasoning string) (in, out int) {
	var c counter
	c.countMessages(msgs, systemPrompt)
	c.output(response)
	c.output(reasoning)
	return c.tokens()
}

func (c *counter) countMessages(msgs []convo.Message, systemPrompt string) {
	c.input(systemPrompt)
	for _, m := range msgs {
		for _, item := range m.Content {
			switch item.Type {
			case convo.ContentText:
				if m.Role == convo.RoleAssistant {
					c.output(item.Text)
				} else {
					c.input(item.Text)
				}
			case convo.ContentToolUse:
				if item.ToolCall != nil {
					c.input(convo.ArgsJSON(*item.ToolCall))
				}
			case convo.ContentToolResult:
				if item.ToolResult != nil {
					c.input(convo.ResultJSON(*item.ToolResult))
				}
			}
		}
	}
}

// EstimateTranscript estimates tokens from raw beacon text, walking the
// same segment boundaries the codec uses. For a transcript the codec can
// parse, the counts match EstimateMessages over the parsed messages,
// except that thought spans, which the codec strips, count here as
// output the way reasoning does in EstimateWithResponse.
func EstimateTranscript(transcript, systemPrompt string) (in, out int) {
	var c counter
	c.input(systemPrompt)
	txt := c.countThoughts(transcript)

	sections := strings.Split(txt, convo.BeaconAI)
	for i, section := range sections {
		parts := strings.Split(section, convo.BeaconMe)
		if i == 0 {
			if len(parts) == 1 {
				parts = []string{"", parts[0]}
			}
			c.userText(parts[1])
			continue
		}
		if strings.TrimSpace(parts[0]) != "" {
			c.assistantText(parts[0])
		}
		if len(parts) > 1 {
			c.userText(parts[1])
		}
	}
	return c.tokens()
}

// countThoughts counts thought spans as output and returns the text with
// the spans removed. An unterminated span is left in place uncounted,
// matching the codec.
func (c *counter) countThoughts(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, convo.BeaconThought)
		if start < 0 {
			break
		}
		rest := s[start+len(convo.BeaconThought):]
		end := strings.Index(rest, convo.BeaconThoughtEnd)
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		c.output(strings.TrimSpace(rest[:end]))
		s = rest[end+len(convo.BeaconThoughtEnd):]
	}
	b.WriteString(s)
	return b.String()
}

// userText counts one user part the way the codec reads it: image tags
// removed, remainder trimmed.
func (c *counter) userText(part string) {
	removed, _ := tagparse.Process(part, map[string]tagparse.ReplaceFunc{
		"image": tagparse.Remove,
	}, nil)
	if s := strings.TrimSpace(removed); s != "" {
		c.input(s)
	}
}

// assistantText counts one assistant part: the leading text fragment as
// output, each terminated tool section's fenced JSON bodies as input.
// Token markers and text trailing a tool section are not counted, again
// matching what the codec keeps.
func (c *counter) assistantText(part string) {
	part = convo.StripTokenUsage(part)
	fragments := strings.Split(part, convo.BeaconToolStart)
	if lead := strings.TrimSpace(fragments[0]); lead != "" {
		c.output(lead)
	}
	for _, frag := range fragments[1:] {
		section, _, ok := strings.Cut(frag, convo.BeaconToolEnd)
		if !ok {
			continue
		}
		for _, body := range fencedJSON(section) {
			c.input(body)
		}
	}
}

// fencedJSON returns the bodies of ```json fences in order, without the
// fence lines.
func fencedJSON(s string) []string {
	const opener, closer = "```json\n", "\n```"
	var bodies []string
	for {
		start := strings.Index(s, opener)
		if start < 0 {
			return bodies
		}
		rest := s[start+len(opener):]
		end := strings.Index(rest, closer)
		if end < 0 {
			return bodies
		}
		bodies = append(bodies, rest[:end])
		s = rest[end+len(closer):]
	}
}
