package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateBuildsInitialDocument(t *testing.T) {
	m := NewManager(NewBridge("null"))
	s := m.Create(1, 0, Buffers{HTML: "<p>seed</p>"}, Options{}, nil)
	defer m.Close(s.ID.String())

	doc, rev := s.Document()
	assert.Equal(t, int64(1), rev)
	assert.Contains(t, doc, "<p>seed</p>")
	assert.Equal(t, uint(1), s.UserID)
}

func TestManagerCreateDerivesBridgeURL(t *testing.T) {
	m := NewManager(NewBridge("http://localhost:3000"))
	s := m.Create(1, 0, Buffers{}, Options{BridgeHost: "ws://play.local:8080"}, nil)
	defer m.Close(s.ID.String())

	doc, _ := s.Document()
	assert.NotContains(t, doc, `var BRIDGE = "";`)
	assert.Contains(t, doc, `var BRIDGE = "ws://play.local:8080/preview/`+s.ID.String()+`/sandbox";`)
}

func TestManagerGet(t *testing.T) {
	m := NewManager(NewBridge("null"))
	s := m.Create(1, 7, Buffers{}, Options{}, nil)
	defer m.Close(s.ID.String())

	got, err := m.Get(s.ID.String())
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, uint(7), got.ProjectID)

	_, err = m.Get("not-a-session")
	assert.Error(t, err)
}

func TestSessionRunRebuildsImmediately(t *testing.T) {
	m := NewManager(NewBridge("null"))
	s := m.Create(1, 0, Buffers{HTML: "<p>old</p>"}, Options{}, nil)
	defer m.Close(s.ID.String())

	html := "<p>new</p>"
	s.UpdateBuffers(&html, nil, nil)
	s.Run()

	require.Eventually(t, func() bool {
		doc, _ := s.Document()
		return !strings.Contains(doc, "<p>old</p>") && strings.Contains(doc, "<p>new</p>")
	}, 2*time.Second, 10*time.Millisecond)

	_, rev := s.Document()
	assert.GreaterOrEqual(t, rev, int64(2))
}

func TestSessionPartialBufferUpdate(t *testing.T) {
	m := NewManager(NewBridge("null"))
	s := m.Create(1, 0, Buffers{HTML: "<p>keep</p>", CSS: "p{}", JS: "1;"}, Options{}, nil)
	defer m.Close(s.ID.String())

	css := "p { color: blue; }"
	s.UpdateBuffers(nil, &css, nil)

	b := s.Buffers()
	assert.Equal(t, "<p>keep</p>", b.HTML, "nil fields leave buffers untouched")
	assert.Equal(t, "p { color: blue; }", b.CSS)
	assert.Equal(t, "1;", b.JS)
}

func TestManagerCloseTearsDownBridgeRoom(t *testing.T) {
	bridge := NewBridge("null")
	m := NewManager(bridge)
	s := m.Create(1, 0, Buffers{}, Options{}, nil)
	id := s.ID.String()

	_, err := bridge.Log(id)
	require.NoError(t, err)

	m.Close(id)

	_, err = bridge.Log(id)
	assert.Error(t, err, "bridge room must close with the session")
	_, err = m.Get(id)
	assert.Error(t, err)
}

func TestSessionConsoleWiredToBridge(t *testing.T) {
	bridge := NewBridge("null")
	m := NewManager(bridge)
	s := m.Create(1, 0, Buffers{}, Options{}, nil)
	defer m.Close(s.ID.String())

	require.True(t, bridge.Dispatch(s.ID.String(), Message{Type: TypeConsoleLog, Content: "from sandbox"}))

	entries := s.Console().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "from sandbox", entries[0].Content)
}
