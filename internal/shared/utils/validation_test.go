package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/path?q=1", false},
		{"http", "http://localhost:8080", false},
		{"empty", "", true},
		{"no scheme", "example.com", true},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"no host", "https://", true},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxURLLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("Enter"))
	assert.NoError(t, ValidateKey("ArrowDown"))
	assert.NoError(t, ValidateKey("a"))
	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey("Enter\n"))
	assert.Error(t, ValidateKey(strings.Repeat("x", MaxKeyLength+1)))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("uBlock Origin", "name"))
	assert.Error(t, ValidateName("", "name"))
	assert.Error(t, ValidateName(strings.Repeat("n", MaxNameLength+1), "name"))
	assert.Error(t, ValidateName("bad\x00name", "name"))
}
