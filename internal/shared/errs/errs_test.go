package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(NotFound, "session missing")
	assert.Equal(t, NotFound, err.Code)
	assert.Equal(t, "not_found: session missing", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(Unavailable, "engine launch", cause)
	require.NotNil(t, err)
	assert.Equal(t, Unavailable, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(Internal, "noop", nil))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, Code("")},
		{"classified", New(Timeout, "capture"), Timeout},
		{"wrapped classified", fmt.Errorf("outer: %w", New(Superseded, "channel")), Superseded},
		{"unclassified", errors.New("plain"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestHasCodeThroughWrapLayers(t *testing.T) {
	inner := New(NotReady, "still creating")
	outer := fmt.Errorf("create session: %w", inner)

	assert.True(t, HasCode(outer, NotReady))
	assert.False(t, HasCode(outer, NotFound))
	assert.False(t, HasCode(nil, NotReady))
}

func TestIsMatchesByCode(t *testing.T) {
	a := Newf(Invalid, "coordinate %q out of range", "x")
	b := New(Invalid, "different message")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, New(Timeout, "different code"))
}

func TestConvenienceChecks(t *testing.T) {
	assert.True(t, IsNotFound(New(NotFound, "nope")))
	assert.False(t, IsNotFound(New(Timeout, "slow")))
	assert.True(t, IsTimeout(Wrap(Timeout, "screenshot", errors.New("deadline"))))
}
