package preview

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates console bridge payloads.
type MessageType string

const (
	TypeConsoleLog   MessageType = "console-log"
	TypeConsoleError MessageType = "console-error"
	TypeConsoleWarn  MessageType = "console-warn"
	TypeConsoleInfo  MessageType = "console-info"
)

// Valid reports whether the type is one of the known console message kinds.
// Payloads from the sandbox are untrusted; anything outside the union is
// dropped on receipt.
func (t MessageType) Valid() bool {
	switch t {
	case TypeConsoleLog, TypeConsoleError, TypeConsoleWarn, TypeConsoleInfo:
		return true
	}
	return false
}

// Message is the cross-frame console payload dispatched by the sandbox shim.
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp,omitempty"`
	Session   string      `json:"session,omitempty"`
}

// Entry is a console message admitted to a session's console panel log.
type Entry struct {
	ID         uuid.UUID   `json:"id"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	ReceivedAt time.Time   `json:"received_at"`
}

// maxEntries caps the console log at the most recent entries; the oldest are
// evicted first.
const maxEntries = 100

// dedupWindow suppresses identical (content, type) pairs arriving within this
// interval, so rapid reload loops don't flood the panel.
const dedupWindow = time.Second

// Log is the append-only, capped console message list for one session.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewLog creates an empty console log.
func NewLog() *Log {
	return &Log{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Append admits a message to the log. It returns false when the message is a
// duplicate suppressed by the dedup window or fails type validation.
func (l *Log) Append(msg Message) (Entry, bool) {
	if !msg.Type.Valid() {
		return Entry{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := string(msg.Type) + "\x00" + msg.Content
	if seen, ok := l.lastSeen[key]; ok && now.Sub(seen) < dedupWindow {
		return Entry{}, false
	}
	// Expired keys can no longer suppress anything; drop them so the map
	// stays bounded by the traffic of the last window.
	for k, seen := range l.lastSeen {
		if now.Sub(seen) >= dedupWindow {
			delete(l.lastSeen, k)
		}
	}
	l.lastSeen[key] = now

	entry := Entry{
		ID:         uuid.New(),
		Type:       msg.Type,
		Content:    msg.Content,
		ReceivedAt: now,
	}
	l.entries = append(l.entries, entry)
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}
	return entry, true
}

// Entries returns a copy of the current log in arrival order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear empties the log and the dedup window.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.lastSeen = make(map[string]time.Time)
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Subscriber receives console entries admitted after subscription. Delivery is
// asynchronous relative to the log append; per-subscriber order matches
// dispatch order.
type Subscriber chan Entry

// Bridge relays console messages from sandboxed preview documents to console
// panel subscribers, one room per session.
type Bridge struct {
	mu            sync.RWMutex
	rooms         map[string]*room
	allowedOrigin string
}

type room struct {
	log  *Log
	mu   sync.Mutex
	subs map[Subscriber]struct{}
}

// NewBridge creates a bridge accepting messages from the given origin.
// Sandboxed documents served from data: URIs report a "null" origin, which is
// always accepted alongside the configured one.
func NewBridge(allowedOrigin string) *Bridge {
	return &Bridge{
		rooms:         make(map[string]*room),
		allowedOrigin: allowedOrigin,
	}
}

// AllowOrigin reports whether a sandbox connection from the given origin may
// feed console messages into the bridge.
func (b *Bridge) AllowOrigin(origin string) bool {
	return origin == b.allowedOrigin || origin == "null"
}

// Origin returns the configured application origin.
func (b *Bridge) Origin() string {
	return b.allowedOrigin
}

// Open ensures a room exists for the session and returns its console log.
func (b *Bridge) Open(sessionID string) *Log {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[sessionID]
	if !ok {
		r = &room{log: NewLog(), subs: make(map[Subscriber]struct{})}
		b.rooms[sessionID] = r
	}
	return r.log
}

// Close tears down a session's room and disconnects its subscribers.
func (b *Bridge) Close(sessionID string) {
	b.mu.Lock()
	r, ok := b.rooms[sessionID]
	delete(b.rooms, sessionID)
	b.mu.Unlock()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		close(sub)
	}
	r.subs = make(map[Subscriber]struct{})
}

// Log returns the console log for a session, or an error for unknown sessions.
func (b *Bridge) Log(sessionID string) (*Log, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rooms[sessionID]
	if !ok {
		return nil, fmt.Errorf("preview session %s not found", sessionID)
	}
	return r.log, nil
}

// Dispatch admits a sandbox message and fans it out to the session's console
// subscribers. Duplicate or malformed messages are dropped.
func (b *Bridge) Dispatch(sessionID string, msg Message) bool {
	b.mu.RLock()
	r, ok := b.rooms[sessionID]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	entry, ok := r.log.Append(msg)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		select {
		case sub <- entry:
		default: // slow consumer, drop rather than block the sandbox reader
		}
	}
	return true
}

// Subscribe attaches a console panel listener to a session.
func (b *Bridge) Subscribe(sessionID string) (Subscriber, error) {
	b.mu.RLock()
	r, ok := b.rooms[sessionID]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("preview session %s not found", sessionID)
	}
	sub := make(Subscriber, 64)
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub, nil
}

// Unsubscribe detaches a console panel listener.
func (b *Bridge) Unsubscribe(sessionID string, sub Subscriber) {
	b.mu.RLock()
	r, ok := b.rooms[sessionID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	if _, attached := r.subs[sub]; attached {
		delete(r.subs, sub)
		close(sub)
	}
	r.mu.Unlock()
}
