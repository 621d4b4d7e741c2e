package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"asterplayer/core/gateway"
	"asterplayer/logger"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	defaultSettle = 250 * time.Millisecond
)

// Submitter writes a track submission.
type Submitter interface {
	Submit(ctx context.Context, p gateway.Payload) (string, error)
}

// Watcher submits every *.json payload dropped into a directory. Handled
// files move to processed/ or failed/ so a restart never resubmits them.
type Watcher struct {
	dir    string
	submit Submitter
	settle time.Duration

	pending map[string]time.Time
}

// New prepares dir and its processed/ and failed/ subdirectories.
func New(dir string, submit Submitter) (*Watcher, error) {
	for _, d := range []string{dir, filepath.Join(dir, ProcessedDir), filepath.Join(dir, FailedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("create inbox dir %s: %w", d, err)
		}
	}
	return &Watcher{
		dir:     dir,
		submit:  submit,
		settle:  defaultSettle,
		pending: make(map[string]time.Time),
	}, nil
}

// Run handles files already waiting, then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("inbox watching", logger.String("dir", w.dir))

	if err := w.Drain(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isPayload(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				// wait until writes settle before reading
				w.pending[event.Name] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("inbox watcher error", logger.ErrorField(err))

		case now := <-ticker.C:
			for path, last := range w.pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(w.pending, path)
				w.handle(ctx, path)
			}
		}
	}
}

// Drain processes every payload currently in the inbox, oldest name first.
func (w *Watcher) Drain(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isPayload(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return nil
		}
		w.handle(ctx, filepath.Join(w.dir, name))
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	id, err := w.ProcessFile(ctx, path)
	if err != nil {
		logger.Warn("inbox payload failed",
			logger.String("file", filepath.Base(path)),
			logger.ErrorField(err))
		return
	}
	logger.Info("inbox payload submitted",
		logger.String("file", filepath.Base(path)),
		logger.String("id", id))
}

// ProcessFile submits one payload file and files it away.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("payload vanished: %w", err)
	}
	if err != nil {
		return "", err
	}

	var p gateway.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		w.move(path, FailedDir)
		return "", fmt.Errorf("decode payload: %w", err)
	}

	id, err := w.submit.Submit(gateway.WithOrigin(ctx, "inbox"), p)
	if err != nil {
		w.move(path, FailedDir)
		return "", err
	}

	w.move(path, ProcessedDir)
	return id, nil
}

func (w *Watcher) move(path, sub string) {
	target := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		logger.Error("inbox move failed",
			logger.String("file", path),
			logger.String("to", sub),
			logger.ErrorField(err))
	}
}

func isPayload(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
