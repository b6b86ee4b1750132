package convo

// Beacon sentinels mark structural boundaries inside a transcript. They
// are chosen not to collide with plausible note content; changing them
// breaks every conversation already written to disk.
const (
	// BeaconAI opens an assistant turn.
	BeaconAI = "|AI|"
	// BeaconMe opens a user turn.
	BeaconMe = "|ME|"
	// BeaconToolStart and BeaconToolEnd bracket one tool call/result pair.
	BeaconToolStart = "|TOOL_START|"
	BeaconToolEnd   = "|TOOL_END|"
	// BeaconThought and BeaconThoughtEnd bracket chain-of-thought text.
	// Thought spans are decorative: stripped before parsing, never part
	// of any message.
	BeaconThought    = "|THOUGHT|"
	BeaconThoughtEnd = "|/THOUGHT|"
	// BeaconError precedes an in-document error block.
	BeaconError = "|ERROR|"
	// BeaconTokens prefixes a token-usage marker, closed by BeaconTokensEnd.
	// The full form is |TOKENS|In=12,Out=34|== and is likewise decorative.
	BeaconTokens    = "|TOKENS|"
	BeaconTokensEnd = "|=="
)
