package templating

import "strings"

// add returns a + b.
func add(a, b int) int {
	return a + b
}

// sub returns a - b.
func sub(a, b int) int {
	return a - b
}

// repeat returns a slice of integers from 0 to count-1, capped at MaxRepeat.
func (r *Renderer) repeat(count int) []int {
	count = min(count, r.config.MaxRepeat)
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s
}

func upper(s string) string { return strings.ToUpper(s) }

func lower(s string) string { return strings.ToLower(s) }

// join concatenates its arguments with sep between them.
func join(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}
