package utils

import (
	"strconv"
	"strings"
)

// ParseQueryList handles both repeated and comma-separated query params.
// Empty items and repeats are dropped, first occurrence wins.
// Example:
//
//	?leaf=M-101,M-102   → ["M-101","M-102"]
//	?leaf=M-101&leaf=M-102  → ["M-101","M-102"]
func ParseQueryList(q map[string][]string, key string) []string {
	values := q[key]

	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// ParseQueryInt returns the first value of key as an int, or fallback when
// it is missing or malformed.
func ParseQueryInt(q map[string][]string, key string, fallback int) int {
	values := q[key]
	if len(values) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return fallback
	}
	return n
}
