package util

import "strings"

// SanitizeText strips what PostgreSQL refuses in text columns: invalid UTF-8
// and NUL bytes.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SplitList splits a comma separated query value, trimming blanks and
// dropping empty items.
func SplitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
