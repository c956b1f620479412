package summary

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const (
	fingerprintChars = 5000
	snippetChars     = 200
)

// Fingerprint returns the cache key of content: the MD5 hex digest of the
// lowercased, whitespace-collapsed text capped at 5000 characters.
// Empty or whitespace-only content yields "".
func Fingerprint(content string) string {
	normalized := normalizeContent(content, fingerprintChars)
	if normalized == "" {
		return ""
	}
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Snippet returns the normalized prefix used for near-duplicate matching.
func Snippet(content string) string {
	return normalizeContent(content, snippetChars)
}

func normalizeContent(content string, limit int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	return truncateRunes(normalized, limit)
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// truncateText caps text at maxLen characters and marks the cut with "...".
func truncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
