package preview

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(now *time.Time) *Log {
	l := NewLog()
	l.now = func() time.Time { return *now }
	return l
}

func TestLogAppendRejectsUnknownType(t *testing.T) {
	l := NewLog()
	_, ok := l.Append(Message{Type: "script-injection", Content: "nope"})
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestLogAppendAcceptsKnownTypes(t *testing.T) {
	l := NewLog()
	for _, typ := range []MessageType{TypeConsoleLog, TypeConsoleError, TypeConsoleWarn, TypeConsoleInfo} {
		entry, ok := l.Append(Message{Type: typ, Content: "msg " + string(typ)})
		require.True(t, ok)
		assert.Equal(t, typ, entry.Type)
	}
	assert.Equal(t, 4, l.Len())
}

func TestLogDedupWithinWindow(t *testing.T) {
	now := time.Now()
	l := newTestLog(&now)

	_, ok := l.Append(Message{Type: TypeConsoleLog, Content: "same"})
	require.True(t, ok)

	// Identical message inside the window is suppressed.
	now = now.Add(500 * time.Millisecond)
	_, ok = l.Append(Message{Type: TypeConsoleLog, Content: "same"})
	assert.False(t, ok)

	// Same content at a different level is a distinct message.
	_, ok = l.Append(Message{Type: TypeConsoleError, Content: "same"})
	assert.True(t, ok)

	// Past the window the same message is admitted again.
	now = now.Add(dedupWindow)
	_, ok = l.Append(Message{Type: TypeConsoleLog, Content: "same"})
	assert.True(t, ok)

	assert.Equal(t, 3, l.Len())
}

func TestLogDedupMapStaysBounded(t *testing.T) {
	now := time.Now()
	l := newTestLog(&now)

	// A long session logging distinct lines must not accumulate one dedup
	// key per line forever.
	for i := 0; i < 500; i++ {
		_, ok := l.Append(Message{Type: TypeConsoleLog, Content: fmt.Sprintf("line %d", i)})
		require.True(t, ok)
		now = now.Add(2 * dedupWindow)
	}
	assert.LessOrEqual(t, len(l.lastSeen), 2)
}

func TestLogCapsAtMaxEntries(t *testing.T) {
	l := NewLog()
	for i := 0; i < 150; i++ {
		_, ok := l.Append(Message{Type: TypeConsoleLog, Content: fmt.Sprintf("line %d", i)})
		require.True(t, ok)
	}

	entries := l.Entries()
	require.Len(t, entries, maxEntries)
	assert.Equal(t, "line 50", entries[0].Content, "oldest entries are evicted first")
	assert.Equal(t, "line 149", entries[len(entries)-1].Content)
}

func TestLogClear(t *testing.T) {
	l := NewLog()
	l.Append(Message{Type: TypeConsoleLog, Content: "a"})
	l.Clear()
	assert.Equal(t, 0, l.Len())

	// Clearing resets the dedup window too.
	_, ok := l.Append(Message{Type: TypeConsoleLog, Content: "a"})
	assert.True(t, ok)
}

func TestBridgeAllowOrigin(t *testing.T) {
	b := NewBridge("http://localhost:3000")
	assert.True(t, b.AllowOrigin("http://localhost:3000"))
	assert.True(t, b.AllowOrigin("null"), "sandboxed documents report a null origin")
	assert.False(t, b.AllowOrigin("http://evil.example.com"))
	assert.False(t, b.AllowOrigin(""))
}

func TestBridgeDispatchFansOut(t *testing.T) {
	b := NewBridge("null")
	b.Open("s1")

	sub, err := b.Subscribe("s1")
	require.NoError(t, err)

	ok := b.Dispatch("s1", Message{Type: TypeConsoleLog, Content: "hello"})
	require.True(t, ok)

	select {
	case entry := <-sub:
		assert.Equal(t, TypeConsoleLog, entry.Type)
		assert.Equal(t, "hello", entry.Content)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the dispatched entry")
	}
}

func TestBridgeDispatchUnknownSession(t *testing.T) {
	b := NewBridge("null")
	assert.False(t, b.Dispatch("missing", Message{Type: TypeConsoleLog, Content: "x"}))
}

func TestBridgeDispatchDropsDuplicates(t *testing.T) {
	b := NewBridge("null")
	b.Open("s1")

	require.True(t, b.Dispatch("s1", Message{Type: TypeConsoleLog, Content: "dup"}))
	assert.False(t, b.Dispatch("s1", Message{Type: TypeConsoleLog, Content: "dup"}))

	log, err := b.Log("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, log.Len())
}

func TestBridgeCloseDisconnectsSubscribers(t *testing.T) {
	b := NewBridge("null")
	b.Open("s1")

	sub, err := b.Subscribe("s1")
	require.NoError(t, err)

	b.Close("s1")

	select {
	case _, open := <-sub:
		assert.False(t, open, "subscriber channel must close on room teardown")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}

	_, err = b.Log("s1")
	assert.Error(t, err)
}

func TestBridgeUnsubscribe(t *testing.T) {
	b := NewBridge("null")
	b.Open("s1")

	sub, err := b.Subscribe("s1")
	require.NoError(t, err)
	b.Unsubscribe("s1", sub)

	// Entry still lands in the log, nobody to fan out to.
	require.True(t, b.Dispatch("s1", Message{Type: TypeConsoleInfo, Content: "quiet"}))

	_, open := <-sub
	assert.False(t, open)
}

func TestBridgeSubscribeUnknownSession(t *testing.T) {
	b := NewBridge("null")
	_, err := b.Subscribe("missing")
	assert.Error(t, err)
}
