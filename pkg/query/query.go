package query

import (
	"strconv"
	"strings"
)

// IntSlice parses string values (typically repeated URL parameters) into
// integers. Entries that do not parse are skipped.
func IntSlice(raw []string) []int {
	var parsed []int
	for _, candidate := range raw {
		value, err := strconv.Atoi(strings.TrimSpace(candidate))
		if err != nil {
			continue
		}
		parsed = append(parsed, value)
	}
	return parsed
}

// StringSlice splits one comma-separated parameter value into trimmed
// tokens. Blank tokens are dropped; an empty input yields nil.
func StringSlice(raw string) []string {
	fields := strings.Split(raw, ",")
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if token := strings.TrimSpace(field); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
