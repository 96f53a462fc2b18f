package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cbera/sharkbot/chatlog"
	"github.com/cbera/sharkbot/telemetry"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleHealthz responds to liveness probes by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleMessages serves the rolling chat feed. A store failure renders an
// empty list so the overlay never breaks mid-stream.
func (h *Handlers) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	maxAge := time.Hour
	if v := r.URL.Query().Get("max_age_hours"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			maxAge = time.Duration(f * float64(time.Hour))
		}
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	msgs, err := h.log.Recent(r.Context(), limit, maxAge)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("messages query failed", slog.Any("err", err), slog.String("component", "http"))
		writeJSON(w, http.StatusOK, []chatlog.Message{})
		return
	}
	if msgs == nil {
		msgs = []chatlog.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleTTSMeta reports the output file's state so the overlay can decide
// whether there is new audio to play.
func (h *Handlers) HandleTTSMeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := h.tts.Stat()
	resp := map[string]any{
		"exists": st.Exists,
		"size":   st.Size,
		"url":    "/api/tts/audio",
	}
	if st.Exists {
		resp["timestamp"] = st.ModTime.UTC().Format(time.RFC3339)
	} else {
		resp["timestamp"] = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTTSAudio streams the current audio file; 404 when none exists.
func (h *Handlers) HandleTTSAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.tts.Stat().Exists {
		http.Error(w, "no audio", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, h.tts.OutPath())
}

// HandleLinks serves and updates the link store: GET returns all pairs, POST
// upserts every pair in the request object.
func (h *Handlers) HandleLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := h.links.All(r.Context())
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("links query failed", slog.Any("err", err), slog.String("component", "http"))
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, all)
	case http.MethodPost:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json object", http.StatusBadRequest)
			return
		}
		for k, v := range body {
			if err := h.links.Set(r.Context(), k, v); err != nil {
				telemetry.LoggerWithCorr(r.Context()).Warn("link upsert failed", slog.Any("err", err), slog.String("key", k), slog.String("component", "http"))
				http.Error(w, "store failure", http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEmotes returns the streamer's 7tv emote names for the overlay;
// an empty array when the lookup is unconfigured or failing.
func (h *Handlers) HandleEmotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.emotes == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := h.emotes.Names(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Debug("emote lookup failed", slog.Any("err", err), slog.String("component", "http"))
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// HandleStreamer returns the configured display name for overlay headers.
func (h *Handlers) HandleStreamer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"streamer_name": h.cfg.StreamerName})
}
