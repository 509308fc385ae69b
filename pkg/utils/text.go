// Package utils provides small helpers shared by the pipeline, stores, and
// CLI: vector math, snippet truncation, and logger construction.
package utils

// Truncate cuts s to maxLen characters for display (chunk snippets in search
// output), appending "..." when anything was cut. A maxLen of 0 or less
// returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
