package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/capture"
	"github.com/subatomicERROR/codenano-sub000/internal/preview"
)

// maxFrameBytes caps a single uploaded frame. Preview viewports are small;
// anything past this is not a frame.
const maxFrameBytes = 8 << 20

// CaptureHandler exposes still snapshots and video recordings of a preview
// session. Frames are pushed by the client as PNG uploads; encoding happens
// server-side through the selected strategy.
type CaptureHandler struct {
	manager  *preview.Manager
	store    *capture.Store
	strategy capture.Strategy

	mu         sync.Mutex
	recordings map[string]*recording
}

// recording tracks one in-flight session recording.
type recording struct {
	src    *capture.QueueSource
	cancel context.CancelFunc
	done   chan struct{}

	artifact *capture.Artifact
	err      error
}

// NewCaptureHandler creates a new CaptureHandler using the given strategy.
func NewCaptureHandler(manager *preview.Manager, store *capture.Store, strategy capture.Strategy) *CaptureHandler {
	return &CaptureHandler{
		manager:    manager,
		store:      store,
		strategy:   strategy,
		recordings: make(map[string]*recording),
	}
}

// RegisterCaptureRoutes registers capture routes on the authenticated group.
func (h *CaptureHandler) RegisterCaptureRoutes(g *echo.Group) {
	g.POST("/capture/:id/still", h.Still)
	g.POST("/capture/:id/recordings", h.StartRecording)
	g.POST("/capture/:id/recordings/frames", h.PushFrame)
	g.POST("/capture/:id/recordings/stop", h.StopRecording)
	g.DELETE("/artifacts/:artifactID", h.RevokeArtifact)
}

// RegisterArtifactRoutes registers the unauthenticated artifact download
// route; artifact IDs are unguessable UUIDs.
func (h *CaptureHandler) RegisterArtifactRoutes(e *echo.Echo) {
	e.GET("/artifacts/:artifactID", h.ServeArtifact)
}

// Still renders an uploaded PNG frame as a snapshot at the requested scale
// tier (1, 2 or 3) and returns it as a data URI. Transparency is flattened
// onto a white background.
func (h *CaptureHandler) Still(c echo.Context) error {
	if _, err := h.sessionForCaller(c); err != nil {
		return err
	}

	scale := 1
	if s := c.QueryParam("scale"); s != "" {
		var err error
		scale, err = strconv.Atoi(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid scale")
		}
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxFrameBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read frame")
	}
	frame, err := capture.DecodePNG(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Frame is not a valid PNG")
	}

	uri, err := capture.StillPNG(frame, scale)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"scale": scale, "data_uri": uri})
}

// StartRecording begins a recording for the session. Only one recording per
// session runs at a time. The encoder consumes frames as they are pushed;
// the recording ends on stop, on the duration cap, or when the context is
// cancelled.
func (h *CaptureHandler) StartRecording(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	sessionID := s.ID.String()

	h.mu.Lock()
	if _, exists := h.recordings[sessionID]; exists {
		h.mu.Unlock()
		return echo.NewHTTPError(http.StatusConflict, "A recording is already running for this session")
	}

	fps := capture.DefaultFPS
	if q := c.QueryParam("fps"); q != "" {
		if n, perr := strconv.Atoi(q); perr == nil && n > 0 {
			fps = n
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recording{
		src:    capture.NewQueueSource(4 * fps),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.recordings[sessionID] = rec
	h.mu.Unlock()

	opts := capture.RecordOptions{SessionID: sessionID, FPS: fps}
	go func() {
		defer close(rec.done)
		rec.artifact, rec.err = h.strategy.Record(ctx, rec.src, opts)
		if rec.err != nil {
			log.Println("recording failed for session", sessionID, ":", rec.err)
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"session_id": sessionID,
		"strategy":   h.strategy.Name(),
		"mime_type":  h.strategy.MimeType(),
		"fps":        fps,
	})
}

// PushFrame feeds one PNG frame into the running recording. Frames pushed
// faster than the encoder drains are dropped rather than blocking the editor.
func (h *CaptureHandler) PushFrame(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}

	h.mu.Lock()
	rec, ok := h.recordings[s.ID.String()]
	h.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No recording is running for this session")
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxFrameBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read frame")
	}
	frame, err := capture.DecodePNG(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Frame is not a valid PNG")
	}

	if err := rec.src.Push(frame); err != nil {
		return echo.NewHTTPError(http.StatusConflict, "Recording has already finished")
	}
	return c.NoContent(http.StatusAccepted)
}

// StopRecording ends the recording, waits for the encoder to finish, and
// returns the resulting artifact.
func (h *CaptureHandler) StopRecording(c echo.Context) error {
	s, err := h.sessionForCaller(c)
	if err != nil {
		return err
	}
	sessionID := s.ID.String()

	h.mu.Lock()
	rec, ok := h.recordings[sessionID]
	delete(h.recordings, sessionID)
	h.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No recording is running for this session")
	}

	rec.src.CloseSource()
	<-rec.done
	rec.cancel()

	if rec.err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, rec.err.Error())
	}
	return c.JSON(http.StatusOK, rec.artifact)
}

// ServeArtifact streams a stored recording. Revoked artifacts return 404.
func (h *CaptureHandler) ServeArtifact(c echo.Context) error {
	id, err := uuid.Parse(c.Param("artifactID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid artifact ID")
	}
	a, ok := h.store.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Artifact not found or revoked")
	}
	c.Response().Header().Set("Content-Type", a.MimeType)
	return c.File(a.Path)
}

// RevokeArtifact removes a stored artifact and its file.
func (h *CaptureHandler) RevokeArtifact(c echo.Context) error {
	if getUserIDFromContext(c) == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id, err := uuid.Parse(c.Param("artifactID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid artifact ID")
	}
	h.store.Revoke(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CaptureHandler) sessionForCaller(c echo.Context) (*preview.Session, error) {
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
