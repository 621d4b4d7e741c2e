package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"asterplayer/core/gateway"
	"asterplayer/logger"
	"asterplayer/storage"
)

// AutoAddParam is the bootstrap query parameter carrying a submission.
const AutoAddParam = "auto-add"

// MediaHandler streams offloaded audio from the vault.
type MediaHandler struct {
	vault *storage.AudioVault
}

// NewMediaHandler creates a MediaHandler; a nil vault answers 404.
func NewMediaHandler(vault *storage.AudioVault) *MediaHandler {
	return &MediaHandler{vault: vault}
}

// ServeHTTP implements http.Handler.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, storage.MediaPrefix)
	if h.vault == nil || !strings.HasPrefix(objectPath, "audio/") || strings.Contains(objectPath, "..") {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, contentType, size, err := h.vault.Open(ctx, objectPath)
	if err != nil {
		if !storage.IsNotFound(err) {
			logger.Error("open media object", logger.String("object", objectPath), logger.ErrorField(err))
		}
		http.NotFound(w, r)
		return
	}
	defer object.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	if _, err := io.Copy(w, object); err != nil {
		logger.Error("Error serving file from MinIO", logger.ErrorField(err))
	}
}

// UIHandler serves the web UI and consumes the auto-add bootstrap
// parameter: a successful submission redirects to the same URL without
// the parameter; a failed one serves the page unchanged.
type UIHandler struct {
	submit *gateway.Gateway
	files  http.Handler
}

// NewUIHandler creates a UIHandler over dir.
func NewUIHandler(dir string, submit *gateway.Gateway) *UIHandler {
	return &UIHandler{submit: submit, files: http.FileServer(http.Dir(dir))}
}

// ServeHTTP implements http.Handler.
func (h *UIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	raw := query.Get(AutoAddParam)
	if raw == "" || r.Method != http.MethodGet {
		h.files.ServeHTTP(w, r)
		return
	}

	var p gateway.Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.Warn("auto-add payload is not valid JSON", logger.ErrorField(err))
		h.files.ServeHTTP(w, r)
		return
	}

	id, err := h.submit.Submit(gateway.WithOrigin(r.Context(), "auto-add"), p)
	if err != nil {
		logger.Warn("auto-add submission failed", logger.ErrorField(err))
		h.files.ServeHTTP(w, r)
		return
	}
	logger.Info("auto-add submission stored", logger.String("id", id))

	query.Del(AutoAddParam)
	target := url.URL{Path: r.URL.Path, RawQuery: query.Encode()}
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}
