package convo

import (
	"encoding/json"
	"fmt"
)

// FormatToolCall renders a tool call in the fixed line format the parser
// reads back. Arguments are indented JSON inside a fenced block.
func FormatToolCall(call ToolCall) string {
	return fmt.Sprintf("%s\nID: %s\nTool: %s\nArguments:\n```json\n%s\n```\n",
		BeaconToolStart, call.ID, call.Name, ArgsJSON(call))
}

// FormatToolResult renders a tool result, closing the tool section.
func FormatToolResult(result ToolResult) string {
	return fmt.Sprintf("Result:\n```json\n%s\n```\n%s\n",
		ResultJSON(result), BeaconToolEnd)
}

// ArgsJSON renders a call's arguments exactly as they appear inside the
// fenced block written by FormatToolCall.
func ArgsJSON(call ToolCall) string {
	return marshalIndent(call.Arguments)
}

// ResultJSON renders a result's wire body exactly as it appears inside
// the fenced block written by FormatToolResult.
func ResultJSON(result ToolResult) string {
	wire := wireResult{Result: result.Result}
	if result.Error != "" {
		e := result.Error
		wire.Error = &e
	}
	return marshalIndent(wire)
}

// FormatTokenUsage renders the token-usage marker, without a trailing
// newline.
func FormatTokenUsage(in, out int) string {
	return fmt.Sprintf("%sIn=%d,Out=%d%s", BeaconTokens, in, out, BeaconTokensEnd)
}

// WrapThought renders reasoning text as a thought span, padded with
// newlines so it sits on its own lines in the note.
func WrapThought(reasoning string) string {
	return fmt.Sprintf("\n%s\n%s\n%s\n", BeaconThought, reasoning, BeaconThoughtEnd)
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"marshal_error": %q}`, err.Error())
	}
	return string(b)
}
