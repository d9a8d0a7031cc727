// Package id issues the service's identifiers.
//
// Session and request ids are prefixed ULIDs (sess_01J..., req_01J...).
// ULIDs sort lexicographically by issue time, so log greps and time-range
// scans need no extra timestamp column, and the prefix tells a reader what
// kind of id they are looking at.
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies one browser session.
type SessionID string

// RequestID correlates one API request across log lines and trace spans.
type RequestID string

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

const (
	sessionPrefix = "sess_"
	requestPrefix = "req_"
)

// The monotonic source keeps ids issued within the same millisecond in
// issue order. It is not safe for concurrent reads, hence the lock.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

func next() ulid.ULID {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewSessionID issues an id for a freshly created session.
func NewSessionID() SessionID {
	return SessionID(sessionPrefix + next().String())
}

// NewRequestID issues a correlation id for one request.
func NewRequestID() RequestID {
	return RequestID(requestPrefix + next().String())
}

// Timestamp recovers the issue time embedded in a prefixed id.
func Timestamp(s string) (time.Time, error) {
	raw := s
	if i := strings.IndexByte(raw, '_'); i >= 0 {
		raw = raw[i+1:]
	}
	u, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// IsValid reports whether s parses as an id issued by this package. The
// prefix, if any, is not checked; only the ULID payload matters.
func IsValid(s string) bool {
	_, err := Timestamp(s)
	return err == nil
}
