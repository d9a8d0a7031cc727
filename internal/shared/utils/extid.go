package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ExtensionIDLength is the length of a derived extension identifier.
const ExtensionIDLength = 32

// ExtensionIdentifier derives stable extension IDs from source material.
//
// IDs use the Chromium convention: the first 16 bytes of a SHA-256 digest,
// hex-encoded, with each hex digit shifted into the 'a'-'p' alphabet.
type ExtensionIdentifier struct{}

// NewExtensionIdentifier creates a new extension identifier
func NewExtensionIdentifier() *ExtensionIdentifier {
	return &ExtensionIdentifier{}
}

// FromSeed derives an extension ID from arbitrary seed material
// (a public key for signed extensions, an absolute path for unpacked ones)
func (ei *ExtensionIdentifier) FromSeed(seed []byte) string {
	digest := sha256.Sum256(seed)
	return hexToExtensionAlphabet(hex.EncodeToString(digest[:])[:ExtensionIDLength])
}

// FromPath derives an extension ID from an unpacked extension's absolute path
func (ei *ExtensionIdentifier) FromPath(absPath string) string {
	return ei.FromSeed([]byte(absPath))
}

// Verify checks that an ID matches the expected seed material
func (ei *ExtensionIdentifier) Verify(id string, seed []byte) bool {
	return id == ei.FromSeed(seed)
}

// IsExtensionID reports whether s has the shape of a derived extension ID
func IsExtensionID(s string) bool {
	if len(s) != ExtensionIDLength {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'p' {
			return false
		}
	}
	return true
}

// hexToExtensionAlphabet maps hex digits onto 'a'-'p'
func hexToExtensionAlphabet(hexStr string) string {
	out := make([]byte, len(hexStr))
	for i := 0; i < len(hexStr); i++ {
		c := hexStr[i]
		switch {
		case c >= '0' && c <= '9':
			out[i] = 'a' + (c - '0')
		case c >= 'a' && c <= 'f':
			out[i] = 'a' + 10 + (c - 'a')
		default:
			out[i] = 'a'
		}
	}
	return string(out)
}
