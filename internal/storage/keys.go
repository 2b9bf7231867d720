package storage

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const maxKeyLength = 255

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey accepts only flat file names, so a key can never address
// anything outside the store root.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength || strings.Contains(key, "..") || !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// NewKey returns a fresh key that keeps the (sanitized) extension of name.
func NewKey(name string) string {
	return uuid.New().String() + cleanExt(filepath.Ext(name))
}

func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

// RefFromKey builds the public reference path stored on records.
func RefFromKey(prefix, key string) string {
	return strings.TrimRight(prefix, "/") + "/" + key
}

// KeyFromRef extracts and validates the key behind a reference path.
func KeyFromRef(prefix, ref string) (string, error) {
	p := strings.TrimRight(prefix, "/") + "/"
	if !strings.HasPrefix(ref, p) {
		return "", ErrInvalidKey
	}
	key := strings.TrimPrefix(ref, p)
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
