package summarize

import "unicode/utf8"

const (
	// MaxSummaryBytes caps summary content at 512 KiB. The same value is
	// passed to the digest capability as its per-file limit and applied
	// again to the final output.
	MaxSummaryBytes = 524288

	// TruncationNotice is appended to any summary cut at the cap
	TruncationNotice = "\n\n[... Summary truncated at 512KB limit ...]"
)

// Truncate enforces the summary byte cap. Content at or under the cap is
// returned unchanged. Oversized content is cut at the cap, never splitting
// a UTF-8 rune, and the truncation notice is appended.
func Truncate(s string, maxBytes int) (string, bool) {
	if len(s) <= maxBytes {
		return s, false
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + TruncationNotice, true
}
