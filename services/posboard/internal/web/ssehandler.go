package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/appetiteclub/posboard/services/posboard/internal/session"
	"github.com/go-chi/chi/v5"
)

const keepaliveInterval = 30 * time.Second

// Stream mounts a board session for the connecting display and streams its
// renders, audio commands and notifications until the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	locationID := chi.URLParam(r, "locationID")
	query := r.URL.Query()

	permission, err := push.ParsePermission(query.Get("permission"))
	if err != nil {
		permission = push.PermissionDefault
	}

	bridge := NewBridge(defaultQueueSize)
	s := session.New(session.Config{
		LocationID: locationID,
		DeviceKey:  query.Get("device"),
		Currency:   h.cfg.Currency,
		Permission: permission,
		Alarm:      h.cfg.Alarm,
	}, h.deps, bridge, bridge, bridge)

	h.attach(s, bridge)
	defer func() {
		h.detach(s.ID())
		if err := s.Unmount(context.WithoutCancel(ctx)); err != nil {
			h.logger.Error("session unmount failed", "session", s.ID(), "error", err)
		}
		h.logger.Info("board disconnected", "session", s.ID(), "location", locationID, "dropped_events", bridge.Dropped())
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")

	hello, _ := json.Marshal(map[string]string{"session_id": s.ID(), "location_id": locationID})
	sendSSEEvent(w, eventSession, string(hello))
	flusher.Flush()

	h.logger.Info("board connected", "session", s.ID(), "location", locationID)
	if err := s.Mount(ctx); err != nil {
		h.logger.Error("session mount failed", "session", s.ID(), "error", err)
	}

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()

		case <-bridge.Ready():
			for _, evt := range bridge.Drain() {
				sendSSEEvent(w, evt.Name, string(evt.Data))
			}
		}
	}
}

// sendSSEEvent writes one event, prefixing every data line.
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
