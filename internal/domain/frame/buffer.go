// Package frame holds the latest captured frame for each session.
//
// The buffer is a per-session cell, not a queue: every publish replaces the
// previous frame and bumps a version counter that lives with the session,
// so a stream that rebinds keeps observing strictly increasing versions.
package frame

import (
	"sync"
	"time"
)

// Frame is one captured viewport image. Frames are immutable after
// publication; Data ownership transfers to the buffer on Publish.
type Frame struct {
	SessionID  string
	Version    uint64
	Data       []byte
	URL        string
	Title      string
	CapturedAt time.Time
}

type cell struct {
	mu      sync.Mutex
	version uint64
	frame   *Frame
}

// Buffer maps session ids to their latest frame.
type Buffer struct {
	mu    sync.RWMutex
	cells map[string]*cell
}

func NewBuffer() *Buffer {
	return &Buffer{cells: make(map[string]*cell)}
}

// Publish stores a new frame for the session and returns it with the next
// version assigned. The previous frame is discarded.
func (b *Buffer) Publish(sessionID string, data []byte, url, title string) *Frame {
	c := b.cell(sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	c.frame = &Frame{
		SessionID:  sessionID,
		Version:    c.version,
		Data:       data,
		URL:        url,
		Title:      title,
		CapturedAt: time.Now(),
	}
	return c.frame
}

// Latest returns the session's current frame, or nil when nothing has been
// captured yet.
func (b *Buffer) Latest(sessionID string) *Frame {
	b.mu.RLock()
	c, ok := b.cells[sessionID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Drop forgets the session's frame and version counter. Called when the
// session leaves the table; a reused id would start over at version 1.
func (b *Buffer) Drop(sessionID string) {
	b.mu.Lock()
	delete(b.cells, sessionID)
	b.mu.Unlock()
}

func (b *Buffer) cell(sessionID string) *cell {
	b.mu.RLock()
	c, ok := b.cells[sessionID]
	b.mu.RUnlock()
	if ok {
		return c
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok = b.cells[sessionID]; ok {
		return c
	}
	c = &cell{}
	b.cells[sessionID] = c
	return c
}
