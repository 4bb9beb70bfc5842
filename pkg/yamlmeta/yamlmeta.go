// Package yamlmeta extracts the limited per-occurrence metadata block
// (flat keys plus one nested level) that may appear in an ICS event's
// DESCRIPTION. It never fails: unparseable input yields an empty map.
package yamlmeta

import (
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"
)

var fencedBlock = regexp.MustCompile("(?s)```ya?ml\\s*\\n(.*?)\\n?```")

// keyLine matches the top-of-description "key:" run this system also
// accepts without a fence.
var keyLine = regexp.MustCompile(`^[A-Za-z0-9_]+:`)

// Extract parses the metadata block out of an event description, returning
// a map with flat keys plus at most one nested level. Unknown keys are
// preserved verbatim. Unrecognized syntax returns an empty, non-nil map.
func Extract(description string) map[string]interface{} {
	block := findBlock(description)
	if block == "" {
		return map[string]interface{}{}
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &parsed); err != nil || parsed == nil {
		return map[string]interface{}{}
	}

	return flattenOneLevel(parsed)
}

// findBlock locates either a fenced ```yaml``` block, or a contiguous run
// of "key:" lines at the top of the description.
func findBlock(description string) string {
	if m := fencedBlock.FindStringSubmatch(description); m != nil {
		return m[1]
	}

	lines := strings.Split(description, "\n")
	var run []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "" {
			if len(run) > 0 {
				break
			}
			continue
		}
		// A run member is either a top-level "key:" line, or an indented
		// continuation (one nested level) of the preceding key.
		if keyLine.MatchString(trimmed) || (len(run) > 0 && startsWithIndent(trimmed)) {
			run = append(run, trimmed)
			continue
		}
		break
	}

	if len(run) == 0 {
		return ""
	}
	return strings.Join(run, "\n")
}

func startsWithIndent(s string) bool {
	return strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t")
}

// flattenOneLevel enforces the "flat keys plus one nested level" subset:
// any map value nested more than one level deep is dropped rather than
// silently accepted, keeping the recognized shape predictable for callers.
func flattenOneLevel(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if child, ok := v.(map[string]interface{}); ok {
			out[k] = stripDeepNesting(child)
			continue
		}
		out[k] = v
	}
	return out
}

func stripDeepNesting(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if _, ok := v.(map[string]interface{}); ok {
			// Deeper than one level: drop rather than guess a meaning.
			continue
		}
		out[k] = v
	}
	return out
}

// String reads a scalar string value out of a metadata map, returning "" if
// absent or of the wrong type.
func String(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Bool reads a scalar bool value, defaulting to def if absent or wrong type.
func Bool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Nested reads a one-level-nested child map, e.g. "command" -> {name, args}.
func Nested(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key]; ok {
		if child, ok := v.(map[string]interface{}); ok {
			return child
		}
	}
	return nil
}
