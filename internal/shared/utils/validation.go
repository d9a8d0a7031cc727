package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Input limits enforced at the service edge. Oversized input is rejected
// before it reaches the engine or the store.
const (
	MaxManifestSize      = 256 * 1024 // extension manifest.json bytes
	MaxTextLength        = 16 * 1024  // characters in one type event
	MaxURLLength         = 2048
	MaxKeyLength         = 64 // keyboard key name
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
)

// stringField rejects empty values, over-limit rune counts, and embedded
// NUL bytes.
func stringField(value, field string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", field, maxLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	return nil
}

// ValidateURL accepts a navigable URL: http or https with a non-empty host.
func ValidateURL(rawURL string) error {
	if err := stringField(rawURL, "url", MaxURLLength); err != nil {
		return err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url is missing a host")
	}
	return nil
}

// ValidateKey accepts a keyboard key name ("Enter", "ArrowDown", "a", ...).
func ValidateKey(key string) error {
	if err := stringField(key, "key", MaxKeyLength); err != nil {
		return err
	}

	// Key names never span lines
	if strings.ContainsAny(key, "\n\r") {
		return fmt.Errorf("key contains invalid characters")
	}
	return nil
}

// ValidateName accepts a human-readable name field.
func ValidateName(name, field string) error {
	return stringField(name, field, MaxNameLength)
}
