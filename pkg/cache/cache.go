// Package cache provides the process-wide fallback transcript cache.
//
// The cache maps session ids to the combined plain-text transcript and is
// populated only when a poller reaches the ready state. Read paths consult it
// as a secondary source when the document store lookup misses. It is
// best-effort, not a source of truth: there is no eviction and contents are
// lost on process restart by construction.
package cache

import "sync"

// TranscriptCache is a concurrency-safe in-memory transcript cache.
type TranscriptCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New creates an empty TranscriptCache.
func New() *TranscriptCache {
	return &TranscriptCache{entries: make(map[string]string)}
}

// Put stores the combined transcript text for a session id.
func (c *TranscriptCache) Put(sessionID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = text
}

// Get returns the cached transcript text for a session id.
func (c *TranscriptCache) Get(sessionID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[sessionID]
	return text, ok
}

// Delete removes a session's cached transcript, if present.
func (c *TranscriptCache) Delete(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// Len returns the number of cached transcripts.
func (c *TranscriptCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
