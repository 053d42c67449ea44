package competitors

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*(.*?)\\s*```$")

// ParseList parses a bracketed list of quoted strings such as ["A", 'B'].
// A JSON string array is decoded as JSON, escapes included; single-quoted or
// trailing-comma lists fall back to a lenient scanner. An optional markdown
// code fence is tolerated. Anything else yields an empty slice.
func ParseList(reply string) []string {
	s := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return []string{}
	}

	var decoded []string
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		if decoded == nil {
			decoded = []string{}
		}
		return decoded
	}

	items, ok := parseItems(s[1 : len(s)-1])
	if !ok {
		return []string{}
	}
	return items
}

// parseItems scans `"a", 'b',` style content. A trailing comma is allowed.
// A backslash keeps the following byte literally.
func parseItems(body string) ([]string, bool) {
	items := []string{}
	i := 0
	skipSpace := func() {
		for i < len(body) && strings.ContainsRune(" \t\r\n", rune(body[i])) {
			i++
		}
	}

	for {
		skipSpace()
		if i == len(body) {
			return items, true
		}

		quote := body[i]
		if quote != '"' && quote != '\'' {
			return nil, false
		}
		i++

		var sb strings.Builder
		closed := false
		for i < len(body) {
			c := body[i]
			if c == '\\' && i+1 < len(body) {
				sb.WriteByte(body[i+1])
				i += 2
				continue
			}
			i++
			if c == quote {
				closed = true
				break
			}
			sb.WriteByte(c)
		}
		if !closed {
			return nil, false
		}
		items = append(items, sb.String())

		skipSpace()
		if i == len(body) {
			return items, true
		}
		if body[i] != ',' {
			return nil, false
		}
		i++
	}
}
