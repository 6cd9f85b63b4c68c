package utils

// Truncate shortens s to at most limit runes. Used to keep captions and
// descriptions under the Telegram length ceilings.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
