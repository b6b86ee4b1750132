// Package tools defines the tools available during block conversations.
//
// Toolsets are plain values wired in by configuration: the processor
// receives the sets a block asked for, merged in order, and passes
// their definitions to the backend. There is no global registry.
package tools

import (
	"context"
	"sort"
)

// Param describes a single tool parameter.
type Param struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]Param
	Safe        bool
	Func        func(ctx context.Context, args map[string]any) (any, error)
}

// Definition is the wire shape of a tool handed to a backend.
type Definition map[string]any

// Definition renders the tool in function-calling schema form.
func (t Tool) Definition() Definition {
	properties := make(map[string]any, len(t.Parameters))
	var required []string
	for name, p := range t.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	parameters := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		parameters["required"] = required
	}

	return Definition{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  parameters,
		},
	}
}

// Definitions renders a tool list for a backend request.
func Definitions(list []Tool) []Definition {
	defs := make([]Definition, 0, len(list))
	for _, t := range list {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Toolsets maps set names to their tools.
type Toolsets map[string][]Tool

// Merge combines the named sets in order. A tool name seen earlier
// shadows later ones; unknown set names contribute nothing.
func (ts Toolsets) Merge(keys ...string) []Tool {
	var merged []Tool
	seen := make(map[string]bool)
	for _, key := range keys {
		for _, t := range ts[key] {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// Names returns the set names in sorted order.
func (ts Toolsets) Names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a tool by name in a merged list.
func Lookup(list []Tool, name string) (Tool, bool) {
	for _, t := range list {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Without filters out the named tools. Used to apply configured
// exclusions to a built-in set.
func Without(list []Tool, names ...string) []Tool {
	if len(names) == 0 {
		return list
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := make([]Tool, 0, len(list))
	for _, t := range list {
		if drop[t.Name] {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}
