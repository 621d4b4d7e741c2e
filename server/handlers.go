package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"asterplayer/core/bridge"
	"asterplayer/core/gate"
	"asterplayer/core/gateway"
	"asterplayer/core/tracksync"
	"asterplayer/logger"
	"asterplayer/model"
	"asterplayer/repository"
)

const (
	maxUploadBody = 32 << 20

	uploadSuccessMessage = "음악이 성공적으로 플레이어에 추가되었습니다."
	uploadFailureMessage = "음악 업로드에 실패했습니다."
)

// APIHandler serves the player API.
type APIHandler struct {
	app      *App
	upgrader websocket.Upgrader
}

// NewAPIHandler creates the handler set for app.
func NewAPIHandler(app *App) *APIHandler {
	return &APIHandler{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The bridge authorizes per message against the allowlist and the
			// live feed is read-only, so every origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// UploadResult is the embed API response.
type UploadResult struct {
	Success bool   `json:"success"`
	TrackID string `json:"trackId,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *gateway.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, gate.ErrLocked), errors.Is(err, gate.ErrBadPassword):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ========== tracks ==========

// GetTracksHandler returns the current ordered track list.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.app.Sync.Current(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) && h.app.Config.OfflineFallback {
			w.Header().Set("X-Track-Source", "placeholder")
			writeJSON(w, http.StatusOK, tracksync.PlaceholderTracks(h.app.Catalog)())
			return
		}
		logger.Error("list tracks failed", logger.ErrorField(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// UploadHandler is the same-origin embed API: it accepts a submission and
// always answers with an UploadResult.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	var p gateway.Payload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBody)).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResult{
			Error:   "invalid JSON body: " + err.Error(),
			Message: uploadFailureMessage,
		})
		return
	}

	id, err := h.app.Gateway.Submit(gateway.WithOrigin(r.Context(), "embed"), p)
	if err != nil {
		writeJSON(w, statusFor(err), UploadResult{Error: err.Error(), Message: uploadFailureMessage})
		return
	}
	writeJSON(w, http.StatusOK, UploadResult{Success: true, TrackID: id, Message: uploadSuccessMessage})
}

// AnalyzeHandler classifies a trait list. The body is either the bare list
// or an object carrying it as "charmTraits" or "traits".
func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var traits []model.CharmTrait
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &traits)
	} else {
		var req struct {
			CharmTraits []model.CharmTrait `json:"charmTraits"`
			Traits      []model.CharmTrait `json:"traits"`
		}
		err = json.Unmarshal(trimmed, &req)
		traits = req.CharmTraits
		if traits == nil {
			traits = req.Traits
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid traits: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.app.Catalog.Analyze(traits))
}

// CategoriesHandler returns the category table in declaration order.
func (h *APIHandler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Catalog.Categories())
}

// ========== delete gate ==========

// UnlockHandler exchanges the shared password for a session token.
func (h *APIHandler) UnlockHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, expires, err := h.app.Gate.Unlock(req.Password)
	if err != nil {
		writeError(w, statusFor(err), "wrong password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": expires.UnixMilli(),
	})
}

// DeleteTrackHandler removes a track after checking the unlock session.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Gate.Authorize(bearerToken(r)); err != nil {
		writeError(w, http.StatusUnauthorized, "deletion is locked")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.app.Gateway.Remove(r.Context(), id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Error("delete track failed", logger.String("id", id), logger.ErrorField(err))
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ========== history ==========

// HistoryHandler lists the ledger, newest first.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.app.History == nil {
		writeError(w, http.StatusNotFound, "history ledger is disabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	entries, err := h.app.History.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error("list history failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*model.TrackHistory{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ========== health ==========

// HealthHandler reports store connectivity.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ========== websockets ==========

// BridgeHandler upgrades a partner window's connection and runs the
// cross-origin protocol on it.
func (h *APIHandler) BridgeHandler(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("bridge upgrade failed", logger.String("origin", origin), logger.ErrorField(err))
		return
	}

	logger.Debug("bridge connected", logger.String("origin", origin))
	peer := bridge.NewPeer(conn, origin, bridge.New(h.app.Allowlist, h.app.Gateway), 0)
	peer.Serve(r.Context())
	logger.Debug("bridge disconnected", logger.String("origin", origin))
}

// PartnersHandler tells the player page which origins it may talk to and
// what to announce on load.
func (h *APIHandler) PartnersHandler(w http.ResponseWriter, r *http.Request) {
	partners := h.app.Relay.Partners()
	if partners == nil {
		partners = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"partners": partners,
		"ready":    h.app.Relay.Announcements(),
	})
}

// relayRequest is an envelope the player page received from another window.
type relayRequest struct {
	Origin   string          `json:"origin"`
	Envelope bridge.Envelope `json:"envelope"`
}

// RelayHandler runs the bridge protocol for envelopes the player page
// received through window.postMessage. The page posts the returned
// replies back to the sending window.
func (h *APIHandler) RelayHandler(w http.ResponseWriter, r *http.Request) {
	if !h.sameOrigin(r) {
		writeError(w, http.StatusForbidden, "relay is only available to the player page")
		return
	}

	var req relayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, bridge.DefaultReadLimit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	replies, err := h.app.Relay.Handle(r.Context(), req.Origin, req.Envelope)
	if errors.Is(err, bridge.ErrOriginRejected) {
		logger.Debug("relayed message dropped",
			logger.String("origin", req.Origin),
			logger.String("type", string(req.Envelope.Type)))
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"replies": []bridge.Outbound{}})
		return
	}
	if err != nil {
		logger.Warn("relayed message not answered",
			logger.String("origin", req.Origin),
			logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"replies": replies})
}

// sameOrigin accepts requests without an Origin header and those from the
// served host or the configured public origin.
func (h *APIHandler) sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.TrimRight(origin, "/") == strings.TrimRight(h.app.Config.PublicOrigin, "/") {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// LiveTracksHandler streams the full track list on every change.
func (h *APIHandler) LiveTracksHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("live upgrade failed", logger.ErrorField(err))
		return
	}

	feed := newLiveFeed(conn)
	unsubscribe, err := h.app.Sync.Subscribe(r.Context(), feed.publish)
	if err != nil {
		// with a fallback the placeholder list was already published
		if !errors.Is(err, repository.ErrStoreUnavailable) || !h.app.Config.OfflineFallback {
			logger.Error("live subscribe failed", logger.ErrorField(err))
			feed.abort(websocket.CloseTryAgainLater, "track store unavailable")
			return
		}
	}
	defer unsubscribe()

	feed.serve(r.Context())
}
