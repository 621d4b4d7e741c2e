package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterplayer/core/gateway"
)

type recorder struct {
	mu    sync.Mutex
	calls []gateway.Payload
	err   error
}

func (r *recorder) Submit(ctx context.Context, p gateway.Payload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p)
	if r.err != nil {
		return "", r.err
	}
	return "id", nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec)
	require.NoError(t, err)

	path := write(t, dir, "a.json", `{"name":"테스트 사용자","audioUrl":"https://example.com/test-audio.mp3","charmTraits":[{"charm_name":"다정함","stage":8}],"duration":45}`)
	id, err := w.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "id", id)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "테스트 사용자", rec.calls[0].Name)
	assert.FileExists(t, filepath.Join(dir, ProcessedDir, "a.json"))
	assert.NoFileExists(t, path)
}

func TestProcessFileFailures(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec)
	require.NoError(t, err)

	bad := write(t, dir, "bad.json", `{not json`)
	_, err = w.ProcessFile(context.Background(), bad)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, FailedDir, "bad.json"))
	assert.Zero(t, rec.count())

	rec.err = errors.New("store down")
	rejected := write(t, dir, "rejected.json", `{"name":"a","audioUrl":"u"}`)
	_, err = w.ProcessFile(context.Background(), rejected)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, FailedDir, "rejected.json"))
}

func TestDrainSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec)
	require.NoError(t, err)

	write(t, dir, "2.json", `{"name":"b","audioUrl":"u"}`)
	write(t, dir, "1.json", `{"name":"a","audioUrl":"u"}`)
	write(t, dir, "notes.txt", `ignore me`)
	write(t, dir, ".hidden.json", `{"name":"x","audioUrl":"u"}`)

	require.NoError(t, w.Drain(context.Background()))
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "a", rec.calls[0].Name)
	assert.Equal(t, "b", rec.calls[1].Name)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestRunPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, rec)
	require.NoError(t, err)
	w.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)
	write(t, dir, "late.json", `{"name":"late","audioUrl":"u"}`)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, ProcessedDir, "late.json"))

	cancel()
	require.NoError(t, <-done)
}
