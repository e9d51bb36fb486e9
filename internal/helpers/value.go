package helpers

import "fmt"

// Str renders any value as a string. Strings pass through unchanged, nil
// becomes the empty string.
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Truncate caps s at limit characters, appending a marker when content
// was dropped. limit <= 0 means no cap.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[...truncated...]"
}
