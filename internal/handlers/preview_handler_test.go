package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/preview"
)

func newPreviewFixture() (*preview.Manager, *fakeProjectRepository, *PreviewHandler) {
	manager := preview.NewManager(preview.NewBridge("http://localhost:3000"))
	repo := newFakeProjectRepository()
	return manager, repo, NewPreviewHandler(manager, repo)
}

func TestCreateSessionFromInlineBuffers(t *testing.T) {
	e := newTestEcho()
	_, _, h := newPreviewFixture()

	c, rec := newTestContext(e, http.MethodPost, "/preview/sessions",
		`{"html":"<h1>scratch</h1>","js":"console.log(1);"}`, 1)

	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "/preview/"+resp.ID, resp.PreviewURL)
	assert.Equal(t, int64(1), resp.Revision)
}

func TestCreateSessionFromProject(t *testing.T) {
	e := newTestEcho()
	manager, repo, h := newPreviewFixture()
	repo.CreateProject(&models.Project{Title: "pen", UserID: 1, HTML: "<p>stored</p>"})

	c, rec := newTestContext(e, http.MethodPost, "/preview/sessions", `{"project_id":1}`, 1)
	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	s, err := manager.Get(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>stored</p>", s.Buffers().HTML)
}

func TestCreateSessionForeignProjectForbidden(t *testing.T) {
	e := newTestEcho()
	_, repo, h := newPreviewFixture()
	repo.CreateProject(&models.Project{Title: "pen", UserID: 2, HTML: "<p>x</p>"})

	c, _ := newTestContext(e, http.MethodPost, "/preview/sessions", `{"project_id":1}`, 1)
	err := h.CreateSession(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestServeDocumentSetsSandboxCSP(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	s := manager.Create(1, 0, preview.Buffers{HTML: "<p>doc</p>"}, preview.Options{}, nil)
	defer manager.Close(s.ID.String())

	c, rec := newTestContext(e, http.MethodGet, "/preview/"+s.ID.String(), "", 0)
	c.SetParamNames("id")
	c.SetParamValues(s.ID.String())

	require.NoError(t, h.ServeDocument(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sandbox allow-scripts allow-same-origin",
		rec.Header().Get("Content-Security-Policy"))
	assert.Contains(t, rec.Body.String(), "<p>doc</p>")
}

func TestSessionOwnershipEnforced(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	s := manager.Create(1, 0, preview.Buffers{}, preview.Options{}, nil)
	defer manager.Close(s.ID.String())

	c, _ := newTestContext(e, http.MethodGet, "/preview/sessions/"+s.ID.String(), "", 2)
	c.SetParamNames("id")
	c.SetParamValues(s.ID.String())

	err := h.GetSession(c)
	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestConsoleEndpoints(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	s := manager.Create(1, 0, preview.Buffers{}, preview.Options{}, nil)
	defer manager.Close(s.ID.String())
	id := s.ID.String()

	manager.Bridge().Dispatch(id, preview.Message{Type: preview.TypeConsoleLog, Content: "hello"})

	c, rec := newTestContext(e, http.MethodGet, "/preview/sessions/"+id+"/console", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.GetConsole(c))

	var entries []preview.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Content)

	c, rec = newTestContext(e, http.MethodDelete, "/preview/sessions/"+id+"/console", "", 1)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.ClearConsole(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.Console().Len())
}

func TestCloseSessionRemovesIt(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	s := manager.Create(1, 0, preview.Buffers{}, preview.Options{}, nil)
	id := s.ID.String()

	c, rec := newTestContext(e, http.MethodDelete, "/preview/sessions/"+id, "", 1)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.CloseSession(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := manager.Get(id)
	assert.Error(t, err)
}

func TestCreateSessionWiresConsoleBridge(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()

	c, rec := newTestContext(e, http.MethodPost, "/preview/sessions",
		`{"js":"console.log('ready');"}`, 1)
	require.NoError(t, h.CreateSession(c))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	s, err := manager.Get(resp.ID)
	require.NoError(t, err)
	defer manager.Close(resp.ID)

	// The shim must dial back into the relay; an empty bridge URL would
	// leave the sandbox mute.
	doc, _ := s.Document()
	assert.NotContains(t, doc, `var BRIDGE = "";`)
	assert.Contains(t, doc, `var BRIDGE = "ws://example.com/preview/`+resp.ID+`/sandbox";`)
	assert.Contains(t, doc, `var ORIGIN = "http://localhost:3000";`)
}

func TestConsoleRelayEndToEnd(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	h.RegisterSandboxRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	s := manager.Create(1, 0, preview.Buffers{JS: "console.log('ready');"}, preview.Options{}, nil)
	defer manager.Close(s.ID.String())
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Editor console panel subscribes first.
	consoleConn, _, err := websocket.DefaultDialer.Dial(
		wsBase+"/preview/"+s.ID.String()+"/console/stream",
		http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	defer consoleConn.Close()

	// The sandboxed document reports a "null" origin.
	sandboxConn, _, err := websocket.DefaultDialer.Dial(
		wsBase+"/preview/"+s.ID.String()+"/sandbox",
		http.Header{"Origin": []string{"null"}})
	require.NoError(t, err)
	defer sandboxConn.Close()

	require.NoError(t, sandboxConn.WriteJSON(preview.Message{
		Type:    preview.TypeConsoleLog,
		Content: "ready",
	}))

	consoleConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var entry preview.Entry
	require.NoError(t, consoleConn.ReadJSON(&entry))
	assert.Equal(t, preview.TypeConsoleLog, entry.Type)
	assert.Equal(t, "ready", entry.Content)

	require.Eventually(t, func() bool {
		return s.Console().Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSandboxSocketRejectsForeignOrigin(t *testing.T) {
	e := newTestEcho()
	manager, _, h := newPreviewFixture()
	h.RegisterSandboxRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	s := manager.Create(1, 0, preview.Buffers{}, preview.Options{}, nil)
	defer manager.Close(s.ID.String())
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(
		wsBase+"/preview/"+s.ID.String()+"/sandbox",
		http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}
