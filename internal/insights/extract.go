package insights

import "encoding/json"

// ExtractJSON pulls the first JSON object out of free-form model output.
// It scans for balanced {...} regions (ignoring braces inside strings) and
// returns the first one that parses. When nothing parses it falls back to a
// small error object, so callers always get valid JSON.
func ExtractJSON(text string) json.RawMessage {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end := matchBrace(text, start); end > start {
			candidate := []byte(text[start : end+1])
			if json.Valid(candidate) {
				return candidate
			}
			// skip past the whole unparseable region
			start = end
		}
	}
	fallback, _ := json.Marshal(map[string]string{"error": "no JSON object found in response"})
	return fallback
}

// matchBrace returns the index of the brace closing text[start], or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
