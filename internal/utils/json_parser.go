package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fencedJSONRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][\w-]*)(\s*:)`)
	controlCharsRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	jsonRepairPasses = []func(string) string{
		extractFromMarkdown,
		extractObject,
		repairJSON,
		func(s string) string { return repairJSON(extractObject(s)) },
	}
)

// ParseAIJSON decodes a JSON object out of model output. Besides plain JSON it
// accepts a fenced code block, an object surrounded by prose, trailing commas,
// bare keys and single quoted strings.
func ParseAIJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("empty input")
	}

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	for _, pass := range jsonRepairPasses {
		candidate := pass(input)
		if candidate == "" || candidate == input {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", Truncate(input, 100))
}

// Truncate shortens s to at most maxLen runes
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func extractFromMarkdown(input string) string {
	m := fencedJSONRe.FindStringSubmatch(input)
	if len(m) < 2 {
		return ""
	}
	content := strings.TrimSpace(m[1])
	if !strings.HasPrefix(content, "{") {
		return ""
	}
	return content
}

// extractObject returns the first balanced {...} in input
func extractObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

func repairJSON(input string) string {
	if input == "" {
		return ""
	}
	s := trailingCommaRe.ReplaceAllString(input, "$1")
	s = singleToDoubleQuotes(s)
	s = quoteBareKeys(s)
	return controlCharsRe.ReplaceAllString(s, "")
}

// quoteBareKeys quotes object keys, leaving double quoted strings untouched
func quoteBareKeys(input string) string {
	var b strings.Builder
	b.Grow(len(input) + 8)

	quote := func(segment string) string {
		return unquotedKeyRe.ReplaceAllString(segment, `$1"$2"$3`)
	}

	segStart := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			if inString {
				b.WriteString(input[segStart : i+1])
			} else {
				b.WriteString(quote(input[segStart:i]))
				b.WriteByte('"')
			}
			segStart = i + 1
			inString = !inString
		}
	}

	if inString {
		b.WriteString(input[segStart:])
	} else {
		b.WriteString(quote(input[segStart:]))
	}
	return b.String()
}

// singleToDoubleQuotes rewrites 'quoted' strings outside double quoted ones.
// Apostrophes inside words are left alone.
func singleToDoubleQuotes(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inDouble := false
	inSingle := false
	escaped := false
	prev := byte(0)
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '"' && inSingle:
			b.WriteString(`\"`)
			prev = ch
			continue
		case ch == '\'' && !inDouble:
			if inSingle {
				inSingle = false
				ch = '"'
			} else if strings.IndexByte(":,[{ ", prev) >= 0 || prev == 0 {
				inSingle = true
				ch = '"'
			}
		}
		b.WriteByte(ch)
		if ch != ' ' {
			prev = ch
		}
	}
	return b.String()
}
