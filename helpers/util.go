package helpers

import "strings"

var newlineReplacer = strings.NewReplacer(`\r\n`, " ", `\n`, " ", "\r\n", " ", "\n", " ", "\r", " ")

// CleanText replaces literal and real newlines with a space and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(newlineReplacer.Replace(s))
}

// FirstNonEmpty returns the first non-blank value
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
