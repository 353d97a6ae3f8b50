package tools

import (
	"encoding/json"
	"regexp"
)

// Call is a single tool invocation decoded from model output. Field
// validity is checked per-tool at dispatch time, not here.
type Call map[string]any

// Name returns the tool name, or "" for a structurally invalid call.
func (c Call) Name() string {
	name, _ := c["tool"].(string)
	return name
}

// Key is the canonical serialization used for deduplication.
// encoding/json sorts map keys, so identical payloads collapse to the
// same string regardless of field order in the source text.
func (c Call) Key() string {
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return ""
	}
	return string(b)
}

var (
	fencedBlockRE = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(\\{.+?\\})\\s*```")
	toolTagRE     = regexp.MustCompile(`(?s)<tool>\s*(\{.+?\})\s*</tool>`)
	bareToolRE    = regexp.MustCompile(`\{\s*"tool"\s*:\s*"[^"]+"`)
)

// Extract scans model output for embedded tool calls. Three encodings
// are recognized, in priority order: fenced code blocks (any language
// tag), <tool>…</tool> pairs, and — only when the first two yield
// nothing — bare {"tool": …} objects whose extent is found by brace
// counting. Malformed candidates are dropped without aborting the scan.
// The result is deduplicated and keeps first-occurrence order.
func Extract(text string) []Call {
	if text == "" {
		return nil
	}

	var calls []Call
	seen := map[string]bool{}

	add := func(raw string) {
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		call := Call(data)
		if call.Name() == "" {
			return
		}
		key := call.Key()
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		calls = append(calls, call)
	}

	for _, m := range fencedBlockRE.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range toolTagRE.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	if len(calls) == 0 {
		for _, loc := range bareToolRE.FindAllStringIndex(text, -1) {
			start := loc[0]
			if start > 0 {
				prev := text[start-1]
				if prev == '`' || isWordByte(prev) {
					continue
				}
			}
			if raw, ok := balanceBraces(text[start:]); ok {
				add(raw)
			}
		}
	}

	return calls
}

// balanceBraces finds the end of a JSON object by counting {/} pairs,
// tolerating trailing prose after the closing brace. Braces inside
// string literals are not special-cased.
func balanceBraces(s string) (string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
