package capture

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func writeArtifactFile(t *testing.T, store *Store, sessionID, kind string) *Artifact {
	t.Helper()
	id := uuid.New()
	path := filepath.Join(store.Dir(), id.String()+".bin")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))
	a := &Artifact{
		ID:        id,
		SessionID: sessionID,
		Kind:      kind,
		MimeType:  "application/octet-stream",
		Path:      path,
		URL:       "/artifacts/" + id.String(),
		CreatedAt: time.Now(),
	}
	store.Put(a)
	return a
}

func TestStorePutAndGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a := writeArtifactFile(t, store, "s1", "video")

	got, ok := store.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestStorePutRevokesPreviousSameKind(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first := writeArtifactFile(t, store, "s1", "video")
	second := writeArtifactFile(t, store, "s1", "video")

	_, ok := store.Get(first.ID)
	assert.False(t, ok, "replaced artifact must be revoked")
	_, statErr := os.Stat(first.Path)
	assert.True(t, os.IsNotExist(statErr), "replaced artifact file must be removed")

	_, ok = store.Get(second.ID)
	assert.True(t, ok)
}

func TestStoreKeepsDistinctKinds(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	video := writeArtifactFile(t, store, "s1", "video")
	still := writeArtifactFile(t, store, "s1", "image")

	_, ok := store.Get(video.ID)
	assert.True(t, ok)
	_, ok = store.Get(still.ID)
	assert.True(t, ok)
}

func TestStoreRevoke(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a := writeArtifactFile(t, store, "s1", "video")
	store.Revoke(a.ID)

	_, ok := store.Get(a.ID)
	assert.False(t, ok)
	_, statErr := os.Stat(a.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Revoking twice is a no-op.
	store.Revoke(a.ID)
}

func TestStoreRevokeSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a := writeArtifactFile(t, store, "s1", "video")
	b := writeArtifactFile(t, store, "s1", "image")
	other := writeArtifactFile(t, store, "s2", "video")

	store.RevokeSession("s1")

	_, ok := store.Get(a.ID)
	assert.False(t, ok)
	_, ok = store.Get(b.ID)
	assert.False(t, ok)
	_, ok = store.Get(other.ID)
	assert.True(t, ok, "other sessions must be untouched")
}

func TestQueueSourcePushAndFrame(t *testing.T) {
	q := NewQueueSource(2)
	require.NoError(t, q.Push(testFrame()))

	img, err := q.Frame(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestQueueSourceDropsWhenFull(t *testing.T) {
	q := NewQueueSource(1)
	require.NoError(t, q.Push(testFrame()))
	assert.Error(t, q.Push(testFrame()), "a full queue drops instead of blocking")
}

func TestQueueSourceClose(t *testing.T) {
	q := NewQueueSource(2)
	require.NoError(t, q.Push(testFrame()))
	q.CloseSource()

	// Queued frames drain before the closed signal.
	_, err := q.Frame(context.Background())
	require.NoError(t, err)

	_, err = q.Frame(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)

	assert.ErrorIs(t, q.Push(testFrame()), ErrSourceClosed)

	// Closing twice must not panic.
	q.CloseSource()
}

func TestQueueSourceFrameRespectsContext(t *testing.T) {
	q := NewQueueSource(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Frame(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
