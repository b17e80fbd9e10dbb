package serde

import "strings"

var headerUnescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

// SplitHeader splits a comma separated header list. Double-quoted entries
// may contain commas; their quotes are removed and \" and \\ unescaped.
// An empty value yields no entries.
func SplitHeader(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var (
		parts   []string
		start   int
		quoted  bool
		escaped bool
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && quoted:
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	parts = append(parts, value[start:])

	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
			p = headerUnescaper.Replace(p[1 : len(p)-1])
		}
		parts[i] = p
	}
	return parts
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// QuoteHeader quotes a list element when it contains a comma, a quote or
// surrounding whitespace.
func QuoteHeader(part string) string {
	if !strings.ContainsAny(part, `,"`) && strings.TrimSpace(part) == part {
		return part
	}
	return `"` + headerEscaper.Replace(part) + `"`
}
