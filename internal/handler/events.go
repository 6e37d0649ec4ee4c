package handler

import (
	"fmt"
	"net/http"

	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// EventsHandler handles SSE event streaming
type EventsHandler struct {
	eventHub *service.EventHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(eventHub *service.EventHub) *EventsHandler {
	return &EventsHandler{
		eventHub: eventHub,
	}
}

// RegisterRoutes registers the SSE route
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux, g Guards) {
	mux.Handle("GET /v1/events/stream", g.auth(h.Stream))
}

// Stream handles GET /v1/events/stream
// Streams every event addressed to the caller plus the public feed room.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sub := h.eventHub.Subscribe(service.NamespaceStream, userID)
	defer h.eventHub.Unsubscribe(sub)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriberId\":\"%s\"}\n\n", sub.ID)
	flusher.Flush()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			fmt.Fprint(w, event.Format())
			flusher.Flush()

		case <-sub.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
