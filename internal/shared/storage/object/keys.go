package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameRunes = 120

// ErrInvalidFileName is returned for names that are empty once cleaned or
// that try to climb out of their directory.
var ErrInvalidFileName = errors.New("invalid file name")

// UserKey is the directory segment for a user's objects. Raw user ids such as
// "guest:abc" never appear in storage paths.
func UserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// CleanFileName keeps letters, digits, dot, dash and underscore, turns runs
// of anything else into one underscore, and trims the stem so the whole
// name fits in maxFileNameRunes while the extension survives.
func CleanFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "", ErrInvalidFileName
	}

	runes := []rune(cleaned)
	if len(runes) <= maxFileNameRunes {
		return cleaned, nil
	}
	ext := path.Ext(cleaned)
	if len([]rune(ext)) >= maxFileNameRunes/2 {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(cleaned, ext))
	return string(stem[:maxFileNameRunes-len([]rune(ext))]) + ext, nil
}
