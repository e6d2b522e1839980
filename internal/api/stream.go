package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tablebook/internal/events"
	"tablebook/internal/metrics"
)

// Stream pushes bus events to the client as Server-Sent Events. The first event is a
// snapshot of all reservations.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("stream")
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "streaming disabled"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "streaming unsupported"})
		return
	}

	ch, disconnect, err := h.bus.Connect(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer disconnect()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: 2000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.Warn().Err(err).Str("event", event.Type).Msg("cannot write stream event")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
