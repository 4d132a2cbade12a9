package channels

import (
	"strconv"
	"strings"
)

// EncodePattern writes a vibration pattern as "<n>:a,b,c".
func EncodePattern(p []int64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strconv.Itoa(len(p)) + ":" + strings.Join(parts, ",")
}

// DecodePattern reads the length-prefixed form and, for data written by older
// installs, the bracketed comma-delimited form ("[a, b, c]"). Elements that do
// not parse become 1. A result with fewer than two elements means no pattern.
func DecodePattern(s string) []int64 {
	body := s
	// The count is informational; the elements themselves are authoritative.
	if n, rest, ok := strings.Cut(s, ":"); ok {
		if _, err := strconv.Atoi(n); err == nil {
			body = rest
		}
	}

	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")
	if body == "" {
		return nil
	}

	fields := strings.Split(body, ",")

	pattern := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			v = 1
		}
		pattern[i] = v
	}

	if len(pattern) <= 1 {
		return nil
	}
	return pattern
}
