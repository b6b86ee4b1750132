package tools

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestDefinition(t *testing.T) {
	tool := Tool{
		Name:        "set_mode",
		Description: "Switch the operating mode.",
		Parameters: map[string]Param{
			"mode":   {Type: "string", Description: "The mode to use", Required: true, Enum: []string{"fast", "careful"}},
			"reason": {Type: "string", Description: "Why the mode is changing"},
		},
	}

	def := tool.Definition()
	if def["type"] != "function" {
		t.Errorf("type = %v, want function", def["type"])
	}
	fn, ok := def["function"].(map[string]any)
	if !ok {
		t.Fatalf("function is %T, want map", def["function"])
	}
	if fn["name"] != "set_mode" {
		t.Errorf("name = %v", fn["name"])
	}
	params, ok := fn["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("parameters is %T, want map", fn["parameters"])
	}
	if params["type"] != "object" {
		t.Errorf("parameters type = %v", params["type"])
	}
	props, ok := params["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties is %T, want map", params["properties"])
	}
	mode, ok := props["mode"].(map[string]any)
	if !ok {
		t.Fatalf("mode is %T, want map", props["mode"])
	}
	if got, want := mode["enum"], []string{"fast", "careful"}; !reflect.DeepEqual(got, want) {
		t.Errorf("enum = %v, want %v", got, want)
	}
	if _, ok := props["reason"].(map[string]any); !ok {
		t.Errorf("reason property missing: %v", props)
	}
	if got, want := params["required"], []string{"mode"}; !reflect.DeepEqual(got, want) {
		t.Errorf("required = %v, want %v", got, want)
	}
}

func TestDefinitionNoRequired(t *testing.T) {
	tool := Tool{
		Name: "ping",
		Parameters: map[string]Param{
			"detail": {Type: "boolean", Description: "Include detail"},
		},
	}
	def := tool.Definition()
	params := def["function"].(map[string]any)["parameters"].(map[string]any)
	if _, ok := params["required"]; ok {
		t.Error("required should be omitted when no parameter needs it")
	}
}

func TestMerge(t *testing.T) {
	mk := func(name string) Tool { return Tool{Name: name} }
	sets := Toolsets{
		"alpha": {mk("read"), mk("write")},
		"beta":  {mk("write"), mk("search")},
	}

	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{"single set", []string{"alpha"}, []string{"read", "write"}},
		{"duplicates collapse", []string{"alpha", "beta"}, []string{"read", "write", "search"}},
		{"order follows keys", []string{"beta", "alpha"}, []string{"write", "search", "read"}},
		{"unknown key ignored", []string{"alpha", "nope"}, []string{"read", "write"}},
		{"no keys", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var names []string
			for _, tool := range sets.Merge(tc.keys...) {
				names = append(names, tool.Name)
			}
			if !reflect.DeepEqual(names, tc.want) {
				t.Errorf("Merge(%v) = %v, want %v", tc.keys, names, tc.want)
			}
		})
	}
}

func TestMergeShadowing(t *testing.T) {
	sets := Toolsets{
		"alpha": {{Name: "write", Description: "alpha write"}},
		"beta":  {{Name: "write", Description: "beta write"}},
	}
	merged := sets.Merge("alpha", "beta")
	if len(merged) != 1 {
		t.Fatalf("merged %d tools, want 1", len(merged))
	}
	if merged[0].Description != "alpha write" {
		t.Errorf("kept %q, want the earlier set's tool", merged[0].Description)
	}
}

func TestNames(t *testing.T) {
	sets := Toolsets{"b": nil, "a": nil}
	if got, want := sets.Names(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestLookup(t *testing.T) {
	list := []Tool{{Name: "read_note"}, {Name: "save_file"}}
	if got, ok := Lookup(list, "save_file"); !ok || got.Name != "save_file" {
		t.Errorf("Lookup(save_file) = %q, %v", got.Name, ok)
	}
	if _, ok := Lookup(list, "launch_rocket"); ok {
		t.Error("Lookup should miss on unknown names")
	}
}

func TestWithout(t *testing.T) {
	mk := func(name string) Tool { return Tool{Name: name} }
	list := []Tool{mk("read_note"), mk("save_file"), mk("run_command")}

	var names []string
	for _, tool := range Without(list, "run_command", "absent") {
		names = append(names, tool.Name)
	}
	if want := []string{"read_note", "save_file"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Without() kept %v, want %v", names, want)
	}

	if got := Without(list); len(got) != len(list) {
		t.Errorf("Without() with no names dropped tools: %v", got)
	}
}

func TestConfirmers(t *testing.T) {
	ctx := context.Background()
	tool := Tool{Name: "save_file"}

	if ok, msg := (AutoApprove{}).Confirm(ctx, tool, nil); !ok || msg != "" {
		t.Errorf("AutoApprove = %v, %q", ok, msg)
	}
	if ok, msg := (AutoDeny{Message: "not now"}).Confirm(ctx, tool, nil); ok || msg != "not now" {
		t.Errorf("AutoDeny = %v, %q", ok, msg)
	}
}

func TestToolUnavailableError(t *testing.T) {
	err := &ErrToolUnavailable{ToolName: "launch_rocket"}
	if !strings.Contains(err.Error(), "launch_rocket") {
		t.Errorf("Error() = %q", err.Error())
	}
}
