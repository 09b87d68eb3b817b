package web

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/alarm"
	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/appetiteclub/posboard/services/posboard/internal/session"
	"github.com/appetiteclub/posboard/services/posboard/internal/status"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MaxBodyBytes = 1 << 20

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	AlertSoundPath = "/assets/alert-sound"
)

//go:embed assets/sw.js
var serviceWorker []byte

//go:embed assets/board.html
var boardPage []byte

type Config struct {
	Currency string
	Alarm    alarm.Config
}

// Handler serves the kitchen board: the page, its event stream and the
// commands a display sends back.
type Handler struct {
	registry *session.Registry
	deps     session.Deps
	cfg      Config
	clip     alarm.Clip
	history  session.AckHistory
	metrics  http.Handler
	logger   aqm.Logger
	tlm      *telemetry.HTTP
	started  time.Time

	mu      sync.RWMutex
	bridges map[string]*Bridge
}

func NewHandler(registry *session.Registry, deps session.Deps, cfg Config, clip alarm.Clip, gatherer prometheus.Gatherer, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	cfg.Alarm.ClipURL = AlertSoundPath
	return &Handler{
		registry: registry,
		deps:     deps,
		cfg:      cfg,
		clip:     clip,
		metrics:  promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
		started:  time.Now(),
		bridges:  make(map[string]*Bridge),
	}
}

// WithHistory enables the acknowledgment history route.
func (h *Handler) WithHistory(history session.AckHistory) *Handler {
	h.history = history
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(push.ServiceWorkerPath, h.ServiceWorker)
	r.Get(AlertSoundPath, h.AlertSound)
	r.Handle("/metrics", h.metrics)

	r.Route("/pos/{locationID}", func(r chi.Router) {
		r.Get("/", h.BoardPage)
		r.Get("/stream", h.Stream)
		r.Get("/acknowledgments", h.ListAcknowledgments)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/orders/{orderID}/advance", h.AdvanceOrder)
			r.Post("/acknowledge", h.Acknowledge)
			r.Post("/mute", h.SetMuted)
			r.Post("/gesture", h.Gesture)
			r.Post("/audio/rejected", h.AudioRejected)
			r.Post("/notifications/permission", h.SetPermission)
			r.Post("/push", h.SubscribePush)
		})
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

func (h *Handler) attach(s *session.Session, b *Bridge) {
	h.registry.Add(s)
	h.mu.Lock()
	h.bridges[s.ID()] = b
	h.mu.Unlock()
}

func (h *Handler) detach(id string) {
	h.registry.Remove(id)
	h.mu.Lock()
	delete(h.bridges, id)
	h.mu.Unlock()
}

func (h *Handler) bridge(id string) *Bridge {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bridges[id]
}

// session resolves the session named in the path or writes a 404.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.registry.Get(chi.URLParam(r, "locationID"), chi.URLParam(r, "sessionID"))
	if !ok {
		aqm.RespondError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) BoardPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(boardPage)
}

func (h *Handler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(serviceWorker)
}

func (h *Handler) AlertSound(w http.ResponseWriter, r *http.Request) {
	if len(h.clip.Data) == 0 {
		aqm.RespondError(w, http.StatusNotFound, "No alert sound configured")
		return
	}
	w.Header().Set("Content-Type", h.clip.ContentType)
	http.ServeContent(w, r, h.clip.Name, h.started, bytes.NewReader(h.clip.Data))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	aqm.Respond(w, http.StatusOK, s.View(), nil)
}

func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdvanceOrder")
	defer finish()
	log := h.log(r)

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	orderID := board.Ref(chi.URLParam(r, "orderID"))
	order, err := s.Advance(r.Context(), orderID)
	switch {
	case err == nil:
		aqm.Respond(w, http.StatusOK, order, nil)
	case errors.Is(err, session.ErrOrderNotFound):
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, status.ErrTerminal):
		aqm.RespondError(w, http.StatusConflict, "Order cannot be advanced")
	default:
		log.Errorf("cannot advance order %s: %v", orderID, err)
		aqm.RespondError(w, http.StatusBadGateway, "Could not update order status")
	}
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Acknowledge")
	defer finish()

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	n := s.Acknowledge(r.Context())
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"acknowledged": n,
	}, nil)
}

func (h *Handler) ListAcknowledgments(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListAcknowledgments")
	defer finish()
	log := h.log(r)

	if h.history == nil {
		aqm.RespondError(w, http.StatusNotFound, "Acknowledgment journal disabled")
		return
	}

	limit := int64(defaultHistoryLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	locationID := chi.URLParam(r, "locationID")
	acks, err := h.history.ListByLocation(r.Context(), locationID, limit)
	if err != nil {
		log.Errorf("cannot list acknowledgments for %s: %v", locationID, err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not list acknowledgments")
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"acknowledgments": acks,
	}, nil)
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (h *Handler) SetMuted(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req muteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.SetMuted(req.Muted)
	aqm.Respond(w, http.StatusOK, s.View().Audio, nil)
}

type gestureRequest struct {
	Media bool `json:"media"`
}

// Gesture is posted once per session after the page's first user interaction
// has unlocked its audio. media reports whether the page may autoplay.
func (h *Handler) Gesture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req gestureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if b := h.bridge(s.ID()); b != nil && req.Media {
		b.SetMediaAllowed(true)
	}
	s.Gesture()
	aqm.Respond(w, http.StatusOK, s.View().Audio, nil)
}

type audioRejectedRequest struct {
	Reason string `json:"reason"`
}

// AudioRejected is posted when the page could not play the alert clip it was
// told to play.
func (h *Handler) AudioRejected(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req audioRejectedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if b := h.bridge(s.ID()); b != nil {
		b.SetMediaAllowed(false)
	}
	s.AudioRejected(req.Reason)
	aqm.Respond(w, http.StatusOK, s.View().Audio, nil)
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

func (h *Handler) SetPermission(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req permissionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := push.ParsePermission(req.Permission)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid permission")
		return
	}

	s.SetNotificationPermission(p)
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"permission": p,
	}, nil)
}

type pushRequest struct {
	Subscription push.Subscription `json:"subscription"`
	DeviceLabel  string            `json:"device_label"`
}

func (h *Handler) SubscribePush(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubscribePush")
	defer finish()
	log := h.log(r)

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req pushRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.SubscribePush(r.Context(), req.Subscription, req.DeviceLabel)
	switch {
	case err == nil:
		aqm.Respond(w, http.StatusOK, map[string]interface{}{
			"subscribed": true,
		}, nil)
	case errors.Is(err, push.ErrInvalidSubscription):
		aqm.RespondError(w, http.StatusBadRequest, "Invalid push subscription")
	case errors.Is(err, push.ErrNotGranted):
		aqm.RespondError(w, http.StatusConflict, "Notification permission not granted")
	default:
		log.Errorf("cannot register push subscription: %v", err)
		aqm.RespondError(w, http.StatusBadGateway, "Could not register push subscription")
	}
}
