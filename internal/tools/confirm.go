package tools

import "context"

// Confirmer decides whether an unsafe tool call may run. The returned
// message, when non-empty, is delivered to the conversation as a user
// message alongside the rejection.
type Confirmer interface {
	Confirm(ctx context.Context, tool Tool, args map[string]any) (bool, string)
}

// AutoApprove approves every call. For trusted unattended runs.
type AutoApprove struct{}

// Confirm implements Confirmer.
func (AutoApprove) Confirm(context.Context, Tool, map[string]any) (bool, string) {
	return true, ""
}

// AutoDeny rejects every call, optionally explaining why.
type AutoDeny struct {
	Message string
}

// Confirm implements Confirmer.
func (d AutoDeny) Confirm(context.Context, Tool, map[string]any) (bool, string) {
	return false, d.Message
}
