// Package convo converts between the beacon-delimited conversation
// transcripts stored inside ai! blocks and the structured message lists
// sent to an AI backend. The transcript is the durable form: it lives in
// the note, survives interrupted runs, and is re-parsed fresh on every
// processing pass.
package convo

// Message roles. A well-formed conversation starts and ends with a user
// message; tool results ride in user messages, never assistant ones.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content item types.
const (
	ContentText       = "text"
	ContentToolUse    = "tool_use"
	ContentToolResult = "tool_result"
	ContentImage      = "image"
)

// Message is one conversation turn.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is a tagged union; Type selects which field is populated.
type Content struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Image      *Image      `json:"image,omitempty"`
}

// ToolCall is a backend's request to run one tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult reports one tool execution back to the backend. Error empty
// means success; on failure Result is nil and Error carries the message.
type ToolResult struct {
	Name       string `json:"name"`
	ToolCallID string `json:"tool_call_id"`
	Result     any    `json:"result"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r ToolResult) Failed() bool { return r.Error != "" }

// Image is inline image content, base64-encoded.
type Image struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextContent builds a text content item.
func TextContent(text string) Content {
	return Content{Type: ContentText, Text: text}
}

// ToolUseContent builds a tool_use content item.
func ToolUseContent(call ToolCall) Content {
	return Content{Type: ContentToolUse, ToolCall: &call}
}

// ToolResultContent builds a tool_result content item.
func ToolResultContent(result ToolResult) Content {
	return Content{Type: ContentToolResult, ToolResult: &result}
}

// ImageContent builds an image content item.
func ImageContent(img Image) Content {
	return Content{Type: ContentImage, Image: &img}
}
