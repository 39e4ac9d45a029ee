package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const keepAliveInterval = 30 * time.Second

// handleStream serves the live expense snapshot over Server-Sent Events.
// Every event carries the user's complete expense set, newest first, so
// the client replaces its state wholesale instead of patching deltas.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported.")
		return
	}

	snapshots, cancel, err := s.expenses.Subscribe(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			// Comment line keeps proxies from closing an idle stream.
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			payload, err := json.Marshal(toDTOs(snapshot))
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to encode snapshot", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: expenses\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
