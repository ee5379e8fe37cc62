// Package llmjson decodes JSON produced by a language model. Model output
// is untrusted: it may be wrapped in markdown fences, contain control
// characters, or carry broken escapes. Every call site pairs Decode with
// its own typed fallback value.
package llmjson

import (
	"encoding/json"
	"strings"
)

// Decode sanitizes raw model output and unmarshals it into v.
func Decode(raw string, v any) error {
	cleaned := Sanitize(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return err
	}
	return nil
}

// Sanitize strips markdown fences, trims to the outermost JSON object or
// array, removes control characters and normalizes stray escapes.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip ```json ... ``` fences.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	// Trim any prose around the outermost object/array.
	s = trimToJSON(s)

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			// Keep only escapes JSON understands; drop the backslash
			// for anything else (the model sometimes escapes freely).
			switch r {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				b.WriteByte('\\')
				b.WriteRune(r)
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case r < 0x20:
			// Raw control characters are invalid inside JSON strings.
			if inString {
				switch r {
				case '\n':
					b.WriteString(`\n`)
				case '\t':
					b.WriteString(`\t`)
				case '\r':
					b.WriteString(`\r`)
				}
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

// Clamp01 bounds v to [0,1]; NaN and other non-finite values become def.
func Clamp01(v, def float64) float64 {
	if v != v { // NaN
		return def
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func trimToJSON(s string) string {
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start := objStart
	end := strings.LastIndexByte(s, '}')
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(s, ']')
	}
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
