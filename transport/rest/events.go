package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const keepAliveInterval = 15 * time.Second

// Events - GET /api/events, a Server-Sent Events stream of game snapshots.
// Subscribers receive snapshots in publish order; a slow client may skip
// intermediate ones.
func (that *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Events")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming is not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := that.broadcaster.Subscribe()
	defer cancel()

	log.Info("subscriber connected")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("subscriber disconnected")
			return
		case game := <-updates:
			data, err := json.Marshal(game)
			if err != nil {
				log.Error("failed to marshal snapshot", "error", err)
				continue
			}

			if _, err = fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				log.Info("subscriber write failed, closing stream", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
