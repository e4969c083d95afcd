package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/preview"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
	"gorm.io/gorm"
)

// PreviewHandler manages live preview sessions: the assembled sandbox
// document, the auto-run scheduler, and the websocket console bridge.
type PreviewHandler struct {
	manager           *preview.Manager
	projectRepository repositories.ProjectRepository
	upgrader          websocket.Upgrader
}

// NewPreviewHandler creates a new PreviewHandler. Websocket upgrades are
// checked against the bridge's allowed origin; sandboxed iframes report the
// "null" origin and are accepted.
func NewPreviewHandler(manager *preview.Manager, projectRepo repositories.ProjectRepository) *PreviewHandler {
	h := &PreviewHandler{
		manager:           manager,
		projectRepository: projectRepo,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return manager.Bridge().AllowOrigin(r.Header.Get("Origin"))
		},
	}
	return h
}

// RegisterPreviewRoutes registers authenticated session management routes.
func (h *PreviewHandler) RegisterPreviewRoutes(g *echo.Group) {
	g.POST("/preview/sessions", h.CreateSession)
	g.GET("/preview/sessions/:id", h.GetSession)
	g.PATCH("/preview/sessions/:id/buffers", h.UpdateBuffers)
	g.POST("/preview/sessions/:id/run", h.RunSession)
	g.GET("/preview/sessions/:id/console", h.GetConsole)
	g.DELETE("/preview/sessions/:id/console", h.ClearConsole)
	g.DELETE("/preview/sessions/:id", h.CloseSession)
}

// RegisterSandboxRoutes registers the unauthenticated surfaces loaded by the
// sandboxed iframe itself: the preview document and the two websocket ends of
// the console relay.
func (h *PreviewHandler) RegisterSandboxRoutes(e *echo.Echo) {
	e.GET("/preview/:id", h.ServeDocument)
	e.GET("/preview/:id/sandbox", h.SandboxSocket)
	e.GET("/preview/:id/console/stream", h.ConsoleSocket)
}

// CreateSessionRequest opens a preview session, either seeded from a stored
// project or from inline buffers for scratch sessions.
type CreateSessionRequest struct {
	ProjectID uint   `json:"project_id"`
	HTML      string `json:"html"`
	CSS       string `json:"css"`
	JS        string `json:"js"`
}

// SessionResponse is the session state returned to the editor.
type SessionResponse struct {
	ID          string `json:"id"`
	ProjectID   uint   `json:"project_id,omitempty"`
	PreviewURL  string `json:"preview_url"`
	Revision    int64  `json:"revision"`
	Loading     bool   `json:"loading"`
	Rebuilds    int64  `json:"rebuilds"`
	LastSaveErr string `json:"last_save_error,omitempty"`
}

func sessionResponse(s *preview.Session) SessionResponse {
	_, rev := s.Document()
	resp := SessionResponse{
		ID:         s.ID.String(),
		ProjectID:  s.ProjectID,
		PreviewURL: "/preview/" + s.ID.String(),
		Revision:   rev,
		Loading:    s.Loading(),
		Rebuilds:   s.Rebuilds(),
	}
	if err := s.LastSaveError(); err != nil {
		resp.LastSaveErr = err.Error()
	}
	return resp
}

// CreateSession opens a new preview session. Sessions backed by a project get
// a debounced auto-save that persists the buffers after 3 seconds of quiet.
func (h *PreviewHandler) CreateSession(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	buffers := preview.Buffers{HTML: req.HTML, CSS: req.CSS, JS: req.JS}
	var save preview.SaveFunc

	if req.ProjectID != 0 {
		project, err := h.projectRepository.GetProjectByID(req.ProjectID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return echo.NewHTTPError(http.StatusNotFound, "Project not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if project.UserID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to open this project")
		}
		buffers = preview.Buffers{HTML: project.HTML, CSS: project.CSS, JS: project.JS}
		projectID := project.ID
		save = func(b preview.Buffers) error {
			return h.projectRepository.SaveBuffers(projectID, userID, b.HTML, b.CSS, b.JS)
		}
	}

	// The shim inside the sandboxed document dials back to this server, so
	// the bridge host is taken from the request that opened the session.
	scheme := "ws"
	if c.Request().TLS != nil {
		scheme = "wss"
	}
	opts := preview.Options{
		ResetCSS:      true,
		CaptureErrors: true,
		BridgeHost:    scheme + "://" + c.Request().Host,
		ParentOrigin:  h.manager.Bridge().Origin(),
	}
	s := h.manager.Create(userID, req.ProjectID, buffers, opts, save)

	return c.JSON(http.StatusCreated, sessionResponse(s))
}

// GetSession returns the current state of a live session.
func (h *PreviewHandler) GetSession(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse(s))
}

// UpdateBuffersRequest is a partial buffer edit. Nil fields leave the
// corresponding buffer untouched.
type UpdateBuffersRequest struct {
	HTML *string `json:"html"`
	CSS  *string `json:"css"`
	JS   *string `json:"js"`
}

// UpdateBuffers applies an edit to the session's source buffers. The rebuild
// happens on the auto-run debounce, not synchronously.
func (h *PreviewHandler) UpdateBuffers(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}

	var req UpdateBuffersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	s.UpdateBuffers(req.HTML, req.CSS, req.JS)
	return c.JSON(http.StatusAccepted, sessionResponse(s))
}

// RunSession forces an immediate rebuild, bypassing the debounce timer.
func (h *PreviewHandler) RunSession(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	s.Run()
	return c.JSON(http.StatusAccepted, sessionResponse(s))
}

// GetConsole returns the session's buffered console entries, oldest first.
func (h *PreviewHandler) GetConsole(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Console().Entries())
}

// ClearConsole empties the console panel.
func (h *PreviewHandler) ClearConsole(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	s.Console().Clear()
	return c.NoContent(http.StatusNoContent)
}

// CloseSession tears down the session, its schedulers, and its bridge room.
func (h *PreviewHandler) CloseSession(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	h.manager.Close(s.ID.String())
	return c.NoContent(http.StatusNoContent)
}

// ServeDocument serves the assembled preview document. The sandbox CSP keeps
// the document isolated the same way a sandboxed iframe would: scripts run,
// but top-level navigation, forms, and plugins stay off.
func (h *PreviewHandler) ServeDocument(c echo.Context) error {
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Preview session not found")
	}

	doc, _ := s.Document()
	c.Response().Header().Set("Content-Security-Policy", "sandbox allow-scripts allow-same-origin")
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTML(http.StatusOK, doc)
}

// SandboxSocket is the ingress side of the console relay: the shim inside the
// preview document connects here and pushes structured console messages.
// Malformed or unknown message types are dropped without closing the socket.
func (h *PreviewHandler) SandboxSocket(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := h.manager.Get(sessionID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Preview session not found")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		var msg preview.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("sandbox socket closed unexpectedly:", err)
			}
			return nil
		}
		msg.Session = sessionID
		h.manager.Bridge().Dispatch(sessionID, msg)
	}
}

// ConsoleSocket is the egress side of the relay: the editor's console panel
// subscribes here and receives each accepted entry as JSON.
func (h *PreviewHandler) ConsoleSocket(c echo.Context) error {
	sessionID := c.Param("id")
	sub, err := h.manager.Bridge().Subscribe(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Preview session not found")
	}
	defer h.manager.Bridge().Unsubscribe(sessionID, sub)

	conn, upErr := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if upErr != nil {
		return upErr
	}
	defer conn.Close()

	// Reader goroutine only to detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry, ok := <-sub:
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(entry); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

func (h *PreviewHandler) sessionForCaller(c echo.Context) (*preview.Session, error) {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	s, err := h.manager.Get(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Preview session not found")
	}
	if s.UserID != userID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "This session belongs to another user")
	}
	return s, nil
}
