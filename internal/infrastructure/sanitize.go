package infrastructure

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeFileName turns a device-reported file name into a safe local file
// name. Only the base name survives; separators, control characters and
// reserved characters are replaced, and the result is bounded to maxLen bytes
// with the extension preserved. Names with nothing usable left fall back to
// media_<fileIndex>.
func SanitizeFileName(name string, fileIndex uint32, maxLen int) string {
	fallback := fmt.Sprintf("media_%d", fileIndex)

	// Device names may use either separator
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, c := range name {
		if c == utf8.RuneError || isReservedFileChar(c) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(c)
	}
	cleaned := strings.TrimLeft(strings.TrimSpace(b.String()), ". ")
	cleaned = strings.TrimRight(cleaned, ". ")

	if cleaned == "" || strings.Trim(cleaned, "_") == "" {
		return fallback
	}

	if maxLen > 0 && len(cleaned) > maxLen {
		if cleaned = truncateFileName(cleaned, maxLen); cleaned == "" {
			return fallback
		}
	}
	return cleaned
}

// truncateFileName shortens name to maxLen bytes, keeping a short extension.
// It returns "" when no whole rune of the base name fits.
func truncateFileName(name string, maxLen int) string {
	ext := filepath.Ext(name)
	if len(ext) > 16 || len(ext) >= maxLen {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	limit := maxLen - len(ext)

	// cut on a rune boundary
	for limit > 0 && !utf8.RuneStart(base[limit]) {
		limit--
	}
	if limit == 0 {
		return ""
	}
	return base[:limit] + ext
}

// isReservedFileChar returns true if the character is unsafe in a local file name
func isReservedFileChar(c rune) bool {
	if unicode.IsControl(c) {
		return true
	}
	switch c {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
		return true
	default:
		return false
	}
}
