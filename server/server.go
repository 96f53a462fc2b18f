// Package server exposes the overlay HTTP API: the rolling chat feed, TTS file
// metadata and audio, link management, health, and metrics. CORS is permissive
// because the consumers are OBS browser sources on localhost, and correlation
// IDs are injected into request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cbera/sharkbot/chatlog"
	"github.com/cbera/sharkbot/config"
	"github.com/cbera/sharkbot/emotes"
	"github.com/cbera/sharkbot/links"
	"github.com/cbera/sharkbot/telemetry"
	"github.com/cbera/sharkbot/tts"
)

// Handlers bundles the API's dependencies.
type Handlers struct {
	cfg    *config.Config
	db     *sql.DB
	log    *chatlog.Log
	links  *links.Store
	tts    *tts.Serializer
	emotes *emotes.Client // nil when SEVENTV_USER_ID is unset
}

func NewHandlers(cfg *config.Config, d *sql.DB, serializer *tts.Serializer, em *emotes.Client) *Handlers {
	return &Handlers{
		cfg:    cfg,
		db:     d,
		log:    chatlog.New(d),
		links:  links.New(d),
		tts:    serializer,
		emotes: em,
	}
}

// NewMux returns the HTTP handler with all routes.
func NewMux(cfg *config.Config, d *sql.DB, serializer *tts.Serializer, em *emotes.Client) http.Handler {
	h := NewHandlers(cfg, d, serializer, em)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/api/messages", h.HandleMessages)
	mux.HandleFunc("/api/tts", h.HandleTTSMeta)
	mux.HandleFunc("/api/tts/audio", h.HandleTTSAudio)
	mux.HandleFunc("/tts.mp3", h.HandleTTSAudio)
	mux.HandleFunc("/api/links", h.HandleLinks)
	mux.HandleFunc("/api/streamer", h.HandleStreamer)
	mux.HandleFunc("/api/emotes", h.HandleEmotes)

	// Correlation ID injector and tracing middleware.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(wrapped, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, wrapped.statusCode)
		if wrapped.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", wrapped.statusCode))
			span.SetStatus(code, msg)
		}
	})
	return withCORS(handler)
}

// withCORS allows any origin; the API serves local overlay pages only.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, cfg *config.Config, d *sql.DB, serializer *tts.Serializer, em *emotes.Client) error {
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewMux(cfg, d, serializer, em),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", cfg.HTTPAddr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
