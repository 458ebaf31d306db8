package util

import "fmt"

// DefaultLogMaxLen is the default maximum length for truncated log output (1KB).
// Full advice text is still returned to the caller and stored by the monitor.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for log output. Advice responses and
// prompts can run to several kilobytes; logs only need the head.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts []byte
// and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
