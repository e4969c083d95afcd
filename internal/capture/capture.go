// Package capture rasterizes rendered previews into shareable artifacts:
// still PNG images and short videos synthesized through ffmpeg. It is
// deliberately best-effort: no audio, no hard frame-timing guarantees.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSourceClosed signals that a frame source has no more frames.
var ErrSourceClosed = errors.New("capture: frame source closed")

// FrameSource supplies rendered preview frames to a recording strategy.
type FrameSource interface {
	// Frame blocks until the next frame is available. It returns
	// ErrSourceClosed once the source is exhausted. Any other error marks a
	// single bad frame; recording continues.
	Frame(ctx context.Context) (image.Image, error)
}

// Artifact is an ephemeral capture product. The file behind it is revoked on
// replacement or session teardown, mirroring object-URL lifetimes.
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"` // image or video
	MimeType  string    `json:"mime_type"`
	Path      string    `json:"-"`
	URL       string    `json:"url"`
	Size      int64     `json:"size_bytes"`
	Frames    int       `json:"frames,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store owns artifact files on disk. Each session keeps at most one live
// artifact per kind; storing a replacement revokes the previous one.
type Store struct {
	dir string

	mu         sync.Mutex
	byID       map[uuid.UUID]*Artifact
	bySessKind map[string]uuid.UUID
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create artifact dir: %w", err)
	}
	return &Store{
		dir:        dir,
		byID:       make(map[uuid.UUID]*Artifact),
		bySessKind: make(map[string]uuid.UUID),
	}, nil
}

// Dir returns the directory artifacts are written into.
func (s *Store) Dir() string {
	return s.dir
}

// Put registers an artifact, revoking any previous artifact of the same kind
// for the session.
func (s *Store) Put(a *Artifact) {
	key := a.SessionID + "/" + a.Kind

	s.mu.Lock()
	prevID, had := s.bySessKind[key]
	s.bySessKind[key] = a.ID
	s.byID[a.ID] = a
	var prev *Artifact
	if had {
		prev = s.byID[prevID]
		delete(s.byID, prevID)
	}
	s.mu.Unlock()

	if prev != nil {
		os.Remove(prev.Path)
	}
}

// Get looks up an artifact by ID.
func (s *Store) Get(id uuid.UUID) (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return a, ok
}

// Revoke removes one artifact and its backing file.
func (s *Store) Revoke(id uuid.UUID) {
	s.mu.Lock()
	a, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		delete(s.bySessKind, a.SessionID+"/"+a.Kind)
	}
	s.mu.Unlock()
	if ok {
		os.Remove(a.Path)
	}
}

// RevokeSession removes every artifact belonging to a session.
func (s *Store) RevokeSession(sessionID string) {
	s.mu.Lock()
	var doomed []*Artifact
	for id, a := range s.byID {
		if a.SessionID == sessionID {
			doomed = append(doomed, a)
			delete(s.byID, id)
			delete(s.bySessKind, a.SessionID+"/"+a.Kind)
		}
	}
	s.mu.Unlock()
	for _, a := range doomed {
		os.Remove(a.Path)
	}
}

// QueueSource is a channel-backed FrameSource fed by pushed frames, e.g.
// rasterized preview frames streamed in by the editor client.
type QueueSource struct {
	frames chan image.Image

	mu     sync.Mutex
	closed bool
}

// NewQueueSource creates a queue source buffering up to n pending frames.
func NewQueueSource(n int) *QueueSource {
	return &QueueSource{frames: make(chan image.Image, n)}
}

// Push enqueues a frame. Pushing to a closed source is an error; a full queue
// drops the frame rather than blocking the producer.
func (q *QueueSource) Push(img image.Image) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrSourceClosed
	}
	select {
	case q.frames <- img:
		return nil
	default:
		return fmt.Errorf("capture: frame queue full, frame dropped")
	}
}

// CloseSource marks the end of the frame stream. Queued frames remain
// consumable: an in-flight frame always finishes before the recorder stops.
func (q *QueueSource) CloseSource() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.frames)
	}
}

// Frame implements FrameSource.
func (q *QueueSource) Frame(ctx context.Context) (image.Image, error) {
	select {
	case img, ok := <-q.frames:
		if !ok {
			return nil, ErrSourceClosed
		}
		return img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
