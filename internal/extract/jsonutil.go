package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// RecoverJSON pulls a JSON document out of free-form model output.
// Models wrap JSON in code fences, preface it with prose, or leave a
// trailing comma; all three are recovered conservatively before giving
// up.
func RecoverJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	candidate, err := outermost(text)
	if err != nil {
		return "", err
	}
	return candidate, nil
}

// RepairJSON applies the trailing-comma fix, the one malformation worth
// repairing rather than re-prompting over.
func RepairJSON(candidate string) string {
	return trailingCommaPattern.ReplaceAllString(candidate, "$1")
}

// outermost locates the outermost {...} or [...] in text, honoring
// string literals and escapes.
func outermost(text string) (string, error) {
	start := -1
	var open, close rune
	for i, r := range text {
		if r == '{' || r == '[' {
			start = i
			open = r
			if r == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON object or array in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := rune(text[i])
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON in response")
}
