package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"asterplayer/core/inbox"
	"asterplayer/logger"
	"asterplayer/storage"
)

// NewRouter builds the HTTP routes for app.
func NewRouter(app *App) *mux.Router {
	h := NewAPIHandler(app)
	router := mux.NewRouter()
	router.Use(corsMiddleware(app))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/live", h.LiveTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", h.DeleteTrackHandler).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/analyze", h.AnalyzeHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/categories", h.CategoriesHandler).Methods(http.MethodGet)
	api.HandleFunc("/session/unlock", h.UnlockHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/history", h.HistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/bridge/partners", h.PartnersHandler).Methods(http.MethodGet)
	api.HandleFunc("/bridge/relay", h.RelayHandler).Methods(http.MethodPost)

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/bridge", h.BridgeHandler).Methods(http.MethodGet)
	router.PathPrefix(storage.MediaPrefix).Handler(NewMediaHandler(app.Vault)).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/").Handler(NewUIHandler(app.Config.WebAppDir, app.Gateway))

	return router
}

// corsMiddleware allows the partner origins and the public origin. Other
// origins get no CORS headers at all.
func corsMiddleware(app *App) mux.MiddlewareFunc {
	public := strings.TrimRight(app.Config.PublicOrigin, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (app.Allowlist.Allowed(origin) || strings.TrimRight(origin, "/") == public) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS, HEAD")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
				w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, X-Track-Source")
				w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			}
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run serves HTTP (and the inbox watcher, when given) until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context, app *App, watcher *inbox.Watcher) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              app.Config.HTTPAddr,
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// websocket handlers outlive Shutdown; they watch this context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info("server starting",
			logger.String("addr", srv.Addr),
			logger.Strings("partners", app.Allowlist.Origins()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	err := g.Wait()
	logger.Info("server stopped")
	return err
}
