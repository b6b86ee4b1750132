package convo

import (
	"strings"
	"testing"
)

func TestFormatToolCall(t *testing.T) {
	call := ToolCall{
		ID:        "call_1",
		Name:      "calc",
		Arguments: map[string]any{"a": float64(1)},
	}
	want := BeaconToolStart + "\nID: call_1\nTool: calc\nArguments:\n```json\n{\n  \"a\": 1\n}\n```\n"
	if got := FormatToolCall(call); got != want {
		t.Errorf("FormatToolCall =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatToolResult(t *testing.T) {
	tests := []struct {
		name   string
		result ToolResult
		want   string
	}{
		{
			name:   "success",
			result: ToolResult{Result: "ok"},
			want:   "Result:\n```json\n{\n  \"result\": \"ok\",\n  \"error\": null\n}\n```\n" + BeaconToolEnd + "\n",
		},
		{
			name:   "failure",
			result: ToolResult{Error: "boom"},
			want:   "Result:\n```json\n{\n  \"result\": null,\n  \"error\": \"boom\"\n}\n```\n" + BeaconToolEnd + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatToolResult(tt.result); got != tt.want {
				t.Errorf("FormatToolResult =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestFormatToolResultUnmarshalable(t *testing.T) {
	got := FormatToolResult(ToolResult{Result: make(chan int)})
	if !strings.Contains(got, "marshal_error") {
		t.Errorf("FormatToolResult = %q, want marshal_error fallback", got)
	}
	if !strings.HasSuffix(got, BeaconToolEnd+"\n") {
		t.Errorf("FormatToolResult = %q, want trailing end beacon", got)
	}
}

func TestFormatTokenUsage(t *testing.T) {
	if got, want := FormatTokenUsage(12, 34), "|TOKENS|In=12,Out=34|=="; got != want {
		t.Errorf("FormatTokenUsage = %q, want %q", got, want)
	}
}

func TestWrapThought(t *testing.T) {
	want := "\n" + BeaconThought + "\nhmm\n" + BeaconThoughtEnd + "\n"
	if got := WrapThought("hmm"); got != want {
		t.Errorf("WrapThought = %q, want %q", got, want)
	}
}
