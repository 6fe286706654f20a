package utils

// Truncate returns s cut to maxLen characters with "..." appended when cut.
// Non-positive maxLen returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
