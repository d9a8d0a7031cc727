package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewSessionID().String(), "sess_"))
	assert.True(t, strings.HasPrefix(NewRequestID().String(), "req_"))
}

func TestIssueOrderSorts(t *testing.T) {
	prev := NewRequestID().String()
	for i := 0; i < 200; i++ {
		cur := NewRequestID().String()
		require.Less(t, prev, cur, "ids must sort by issue order")
		prev = cur
	}
}

func TestTimestampRecovery(t *testing.T) {
	sid := NewSessionID()

	ts, err := Timestamp(sid.String())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewSessionID().String()))
	assert.True(t, IsValid(NewRequestID().String()))

	for _, bad := range []string{"", "sess_", "sess_not-a-ulid", "zzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		assert.False(t, IsValid(bad), "%q should not validate", bad)
	}
}

func TestConcurrentIssueStaysUnique(t *testing.T) {
	const workers = 50
	const perWorker = 200

	ids := make(chan SessionID, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- NewSessionID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[SessionID]struct{}, workers*perWorker)
	for sid := range ids {
		_, dup := seen[sid]
		require.False(t, dup, "duplicate id %s", sid)
		seen[sid] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func BenchmarkNewSessionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewSessionID()
	}
}
