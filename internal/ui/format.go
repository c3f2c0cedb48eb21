package ui

import "fmt"

const gib = 1024 * 1024 * 1024

func formatSize(bytes uint64) string {
	return fmt.Sprintf("%.1f GB", float64(bytes)/gib)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
