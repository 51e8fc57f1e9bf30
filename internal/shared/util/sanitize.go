package util

import (
	"errors"
	"strings"
)

// ErrInvalidFileName flags names that are empty after cleaning or carry
// traversal sequences.
var ErrInvalidFileName = errors.New("invalid file name")

// maxFileNameRunes keeps temp-file names well under filesystem limits even
// after the timestamp and random prefix are added.
const maxFileNameRunes = 120

// SanitizeFileName normalizes an uploaded file name for embedding in a
// server-side temp path. Traversal sequences are rejected, path separators
// become underscores, control characters are dropped, and overlong names
// are trimmed from the front so the extension survives.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" {
		return "", ErrInvalidFileName
	}
	if runes := []rune(s); len(runes) > maxFileNameRunes {
		s = string(runes[len(runes)-maxFileNameRunes:])
	}
	return s, nil
}
