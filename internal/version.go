package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Version is the current version of immersion
const Version = "0.3.1"

// GenerateMediaName creates a unique media filename stem for a word.
// Format: alnum(word)_epochSeconds, matching the temp image naming the
// review pipeline relies on for collision-free regeneration.
func GenerateMediaName(word string) string {
	safe := ""
	for _, r := range word {
		if isAlphaNumeric(r) {
			safe += string(r)
		}
	}
	if safe == "" {
		hash := md5.Sum([]byte(word))
		safe = hex.EncodeToString(hash[:])[:8]
	}
	return fmt.Sprintf("%s_%d", safe, time.Now().Unix())
}

// SanitizeFilename creates a safe filename from a string
func SanitizeFilename(s string) string {
	result := ""
	for _, r := range s {
		if isAlphaNumeric(r) || r == '-' || r == '_' {
			result += string(r)
		} else {
			result += "_"
		}
	}
	return result
}

// isAlphaNumeric reports whether a rune is a letter or digit in the Latin,
// accented Latin or CJK ranges this tool sees in practice.
func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || (r >= 0x00C0 && r <= 0x024F) ||
		(r >= 0x4E00 && r <= 0x9FFF)
}
