package yamlmeta

import "testing"

func TestExtract_FencedBlock(t *testing.T) {
	desc := "Some human text before.\n```yaml\nstopType: hard\nrepeat: 15\nenabled: false\n```\nAnd after."

	m := Extract(desc)
	if got := String(m, "stopType"); got != "hard" {
		t.Errorf("stopType = %q, want hard", got)
	}
	if v, ok := m["repeat"].(float64); !ok || v != 15 {
		t.Errorf("repeat = %v, want 15", m["repeat"])
	}
	if Bool(m, "enabled", true) {
		t.Errorf("expected enabled:false to parse")
	}
}

func TestExtract_UnfencedKeyRunAtTop(t *testing.T) {
	desc := "stopType: graceful_loop\nrepeat: immediate\n\nFree-form notes below the blank line are ignored."

	m := Extract(desc)
	if got := String(m, "stopType"); got != "graceful_loop" {
		t.Errorf("stopType = %q", got)
	}
	if got := String(m, "repeat"); got != "immediate" {
		t.Errorf("repeat = %q", got)
	}
	if _, ok := m["Free-form"]; ok {
		t.Errorf("expected text below the key run to be ignored")
	}
}

func TestExtract_OneNestedLevel(t *testing.T) {
	desc := "command:\n  name: Restart FPPD\n  args: now\nstopType: hard"

	m := Extract(desc)
	cmd := Nested(m, "command")
	if cmd == nil {
		t.Fatalf("expected a nested command map, got %v", m)
	}
	if got := String(cmd, "name"); got != "Restart FPPD" {
		t.Errorf("command.name = %q", got)
	}
	if got := String(cmd, "args"); got != "now" {
		t.Errorf("command.args = %q", got)
	}
}

func TestExtract_DeeperNestingIsDropped(t *testing.T) {
	desc := "```yaml\nstart:\n  symbolic: SunSet\n  extra:\n    tooDeep: true\n```"

	m := Extract(desc)
	start := Nested(m, "start")
	if start == nil {
		t.Fatalf("expected the one-level start map to survive")
	}
	if got := String(start, "symbolic"); got != "SunSet" {
		t.Errorf("start.symbolic = %q", got)
	}
	if _, ok := start["extra"]; ok {
		t.Errorf("expected the two-level nested value to be dropped")
	}
}

func TestExtract_UnknownKeysPreserved(t *testing.T) {
	m := Extract("customKey: customValue\nstopType: hard")
	if got := String(m, "customKey"); got != "customValue" {
		t.Errorf("expected unknown keys to be preserved verbatim, got %v", m)
	}
}

func TestExtract_GarbageYieldsEmptyMap(t *testing.T) {
	for _, desc := range []string{
		"",
		"Just a plain sentence with no metadata.",
		"```yaml\n[not: valid: yaml\n```",
		"- a\n- list\n- document",
	} {
		m := Extract(desc)
		if m == nil {
			t.Fatalf("Extract(%q) returned nil, want an empty map", desc)
		}
		if len(m) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", desc, m)
		}
	}
}

func TestHelpers_WrongTypesFallBack(t *testing.T) {
	m := map[string]interface{}{"n": 5.0, "s": "text"}
	if got := String(m, "n"); got != "" {
		t.Errorf("String over a number = %q, want empty", got)
	}
	if !Bool(m, "s", true) {
		t.Errorf("Bool over a string should return the default")
	}
	if Nested(m, "s") != nil {
		t.Errorf("Nested over a scalar should return nil")
	}
}
