package stream

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

var testMetrics = monitoring.NewMetrics()

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	closeAt  int
	reason   string
}

func newFakeConn() *fakeConn {
	return &fakeConn{closeAt: -1}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.messages = append(c.messages, cp)
	return nil
}

func (c *fakeConn) WriteControl(_ int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) >= 2 {
		c.closeAt = int(binary.BigEndian.Uint16(data[:2]))
		c.reason = string(data[2:])
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.messages))
	for _, raw := range c.messages {
		var m map[string]any
		require.NoError(t, sonic.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) closeCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeAt
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSessions struct {
	mu       sync.Mutex
	frames   *frame.Buffer
	bound    map[string]bool
	captures int
	limit    int
	failCode errs.Code
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{frames: frame.NewBuffer(), bound: make(map[string]bool)}
}

func (s *fakeSessions) Capture(_ context.Context, sessionID string, _ int, _ string) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCode != "" {
		return nil, errs.New(s.failCode, "scripted capture failure")
	}
	s.captures++
	if s.limit > 0 && s.captures > s.limit {
		return nil, errs.New(errs.NotFound, "session gone")
	}
	return s.frames.Publish(sessionID, []byte("img"), "https://a.test", "A"), nil
}

func (s *fakeSessions) SetBound(sessionID string, bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[sessionID] = bound
}

func (s *fakeSessions) isBound(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound[sessionID]
}

func (s *fakeSessions) captureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

func testHub(sessions Sessions) *Hub {
	return NewHub(Config{
		FrameRate:    100,
		Quality:      40,
		WriteTimeout: time.Second,
	}, sessions, logging.NewNop(), testMetrics)
}

func TestBindStreamsFrames(t *testing.T) {
	sessions := newFakeSessions()
	h := testHub(sessions)
	defer h.Shutdown()

	conn := newFakeConn()
	h.Bind("sess_a", conn)

	require.Eventually(t, func() bool { return conn.count() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, sessions.isBound("sess_a"))
	assert.True(t, h.Bound("sess_a"))

	var last float64
	for _, msg := range conn.decoded(t) {
		require.Equal(t, "frame", msg["type"])
		version := msg["version"].(float64)
		assert.Greater(t, version, last, "versions must be strictly increasing")
		last = version
		assert.Contains(t, msg["data"], "data:")
		assert.Equal(t, "https://a.test", msg["url"])
	}
}

func TestSecondBindSupersedes(t *testing.T) {
	sessions := newFakeSessions()
	h := testHub(sessions)
	defer h.Shutdown()

	first := newFakeConn()
	h.Bind("sess_a", first)
	require.Eventually(t, func() bool { return first.count() >= 1 }, time.Second, 5*time.Millisecond)

	second := newFakeConn()
	h.Bind("sess_a", second)

	require.Eventually(t, func() bool { return first.isClosed() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, CloseSuperseded, first.closeCode())

	// The session stays bound through the handover.
	assert.True(t, sessions.isBound("sess_a"))
	assert.True(t, h.Bound("sess_a"))

	require.Eventually(t, func() bool { return second.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestControlMessages(t *testing.T) {
	sessions := newFakeSessions()
	sessions.failCode = errs.Timeout // keep the pump quiet so only control messages arrive
	h := testHub(sessions)
	defer h.Shutdown()

	conn := newFakeConn()
	b := h.Bind("sess_a", conn)

	b.SendError("invalid", "bad event")
	b.SendNavigation(engine.NavState{URL: "https://b.test", Title: "B", CanGoBack: true})

	require.Eventually(t, func() bool { return conn.count() >= 2 }, time.Second, 5*time.Millisecond)
	msgs := conn.decoded(t)

	assert.Equal(t, "error", msgs[0]["type"])
	assert.Equal(t, "invalid", msgs[0]["code"])
	assert.Equal(t, "bad event", msgs[0]["message"])

	assert.Equal(t, "navigation", msgs[1]["type"])
	assert.Equal(t, "https://b.test", msgs[1]["url"])
	assert.Equal(t, true, msgs[1]["can_go_back"])
}

func TestSessionCrashTerminatesChannel(t *testing.T) {
	sessions := newFakeSessions()
	sessions.failCode = errs.Timeout
	h := testHub(sessions)
	defer h.Shutdown()

	conn := newFakeConn()
	b := h.Bind("sess_a", conn)

	h.HandleRelease("sess_a", "crashed", true)

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("binding did not release")
	}

	assert.Equal(t, CloseSessionClosed, conn.closeCode())
	assert.True(t, conn.isClosed())
	assert.False(t, h.Bound("sess_a"))
	assert.False(t, sessions.isBound("sess_a"))

	msgs := conn.decoded(t)
	require.NotEmpty(t, msgs)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, "error", terminal["type"])
	assert.Equal(t, "session_crashed", terminal["code"])
}

func TestClientDisconnectLeavesSessionRebindable(t *testing.T) {
	sessions := newFakeSessions()
	h := testHub(sessions)
	defer h.Shutdown()

	conn := newFakeConn()
	b := h.Bind("sess_a", conn)
	require.Eventually(t, func() bool { return conn.count() >= 1 }, time.Second, 5*time.Millisecond)

	b.Disconnected()
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("binding did not release")
	}

	// No close handshake for a peer that already went away.
	assert.Equal(t, -1, conn.closeCode())
	assert.False(t, h.Bound("sess_a"))
	assert.False(t, sessions.isBound("sess_a"))

	// Rebinding continues the version sequence.
	again := newFakeConn()
	h.Bind("sess_a", again)
	require.Eventually(t, func() bool { return again.count() >= 1 }, time.Second, 5*time.Millisecond)
	first := again.decoded(t)[0]
	assert.Greater(t, first["version"].(float64), float64(1))
}

func TestMailboxDropsOldest(t *testing.T) {
	h := testHub(newFakeSessions())
	defer h.Shutdown()

	b := &Binding{hub: h, mail: make(chan *frame.Frame, 1)}

	f1 := &frame.Frame{Version: 1}
	f2 := &frame.Frame{Version: 2}
	f3 := &frame.Frame{Version: 3}

	b.offer(f1)
	b.offer(f2)
	b.offer(f3)

	select {
	case got := <-b.mail:
		assert.Equal(t, uint64(3), got.Version)
	default:
		t.Fatal("mailbox empty")
	}
}

func TestPumpStopsWhenSessionGone(t *testing.T) {
	sessions := newFakeSessions()
	sessions.limit = 2
	h := testHub(sessions)
	defer h.Shutdown()

	conn := newFakeConn()
	h.Bind("sess_a", conn)

	require.Eventually(t, func() bool { return sessions.captureCount() >= 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// Captures stop after the session disappears.
	settled := sessions.captureCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, sessions.captureCount())
}

func TestShutdownClosesBindings(t *testing.T) {
	sessions := newFakeSessions()
	h := testHub(sessions)

	conn := newFakeConn()
	h.Bind("sess_a", conn)
	require.Eventually(t, func() bool { return conn.count() >= 1 }, time.Second, 5*time.Millisecond)

	h.Shutdown()

	assert.True(t, conn.isClosed())
	assert.Equal(t, CloseSessionClosed, conn.closeCode())
	assert.False(t, h.Bound("sess_a"))
}
