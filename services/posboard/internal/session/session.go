package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/posboard/services/posboard/internal/alarm"
	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/appetiteclub/posboard/services/posboard/internal/realtime"
	"github.com/appetiteclub/posboard/services/posboard/internal/status"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderService is the backend a board talks to.
type OrderService interface {
	FetchOrders(ctx context.Context, locationID string) ([]board.Order, error)
	status.Commander
	push.Registrar
}

// Acknowledgment is one bulk clear of the alert queue.
type Acknowledgment struct {
	ID             uuid.UUID `json:"id"`
	LocationID     string    `json:"location_id"`
	SessionID      string    `json:"session_id"`
	OrderIDs       []string  `json:"order_ids"`
	Count          int       `json:"count"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// AckJournal records acknowledgments.
type AckJournal interface {
	Record(ctx context.Context, ack Acknowledgment) error
}

// AckHistory reads journaled acknowledgments back, newest first.
type AckHistory interface {
	ListByLocation(ctx context.Context, locationID string, limit int64) ([]Acknowledgment, error)
}

// Display is the surface a session renders to. Implementations must not block.
type Display interface {
	Render(v View)
	Notify(n Notification)
}

// Notification is an OS-level alert for a newly placed order.
type Notification struct {
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	OrderID board.Ref `json:"order_id"`
}

// Alert is the blocking new-order modal.
type Alert struct {
	Open   bool          `json:"open"`
	Count  int           `json:"count"`
	Orders []board.Order `json:"orders"`
}

// View is everything a display needs to draw the board.
type View struct {
	SessionID     string          `json:"session_id"`
	LocationID    string          `json:"location_id"`
	Loaded        bool            `json:"loaded"`
	Connected     bool            `json:"connected"`
	Board         board.Kanban    `json:"board"`
	Alert         Alert           `json:"alert"`
	Audio         alarm.State     `json:"audio"`
	Notifications push.Permission `json:"notifications"`
}

type Config struct {
	LocationID string
	DeviceKey  string
	Currency   string
	Permission push.Permission
	Alarm      alarm.Config
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Orders     OrderService
	Subscriber events.Subscriber
	Status     realtime.StatusNotifier
	Journal    AckJournal
	Directory  *push.Directory
	Metrics    *Metrics
	Clock      alarm.Clock
	Logger     aqm.Logger
}

// Session is one mounted kitchen display. It owns the order store, alert
// queue, alarm, push manager, status controller and realtime channel for that
// display. Handlers run one at a time.
type Session struct {
	id         string
	locationID string

	mu        sync.Mutex
	store     *board.Store
	queue     *board.AlertQueue
	engine    *alarm.Engine
	push      *push.Manager
	status    *status.Controller
	channel   *realtime.Channel
	display   Display
	connected bool
	loaded    bool
	alerted   map[board.Ref]struct{}

	unmountOnce sync.Once
	unmountErr  error

	orders  OrderService
	journal AckJournal
	metrics *Metrics
	logger  aqm.Logger
}

func New(cfg Config, deps Deps, media alarm.MediaSink, tones alarm.ToneSink, display Display) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	id := uuid.NewString()
	logger = logger.With("session", id, "location", cfg.LocationID)

	s := &Session{
		id:         id,
		locationID: cfg.LocationID,
		store:      board.NewStore(cfg.Currency),
		queue:      board.NewAlertQueue(),
		alerted:    make(map[board.Ref]struct{}),
		display:    display,
		orders:     deps.Orders,
		journal:    deps.Journal,
		metrics:    deps.Metrics,
		logger:     logger,
	}
	s.engine = alarm.NewEngine(media, tones, deps.Clock, cfg.Alarm, logger)
	s.push = push.NewManager(cfg.LocationID, cfg.DeviceKey, deps.Orders, deps.Directory, logger)
	if cfg.Permission != "" {
		s.push.SetPermission(cfg.Permission)
	}
	s.status = status.NewController(cfg.LocationID, deps.Orders, s.store)
	s.status.OnInFlightChange(func(board.Ref, bool) { s.Render() })
	s.channel = realtime.NewChannel(cfg.LocationID, deps.Subscriber, deps.Status, s, logger).
		WithDropCounter(dropCounter{metrics: deps.Metrics, location: cfg.LocationID})
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) LocationID() string {
	return s.locationID
}

// Mount subscribes to the location, loads the current orders and re-registers
// push. Failures are logged; the board stays usable.
func (s *Session) Mount(ctx context.Context) error {
	s.metrics.SessionMounted()

	// Subscribe first so nothing placed during the fetch is missed.
	if err := s.channel.Start(ctx); err != nil {
		s.logger.Error("cannot start realtime channel", "error", err)
	}

	orders, err := s.orders.FetchOrders(ctx, s.locationID)

	s.mu.Lock()
	if err != nil {
		s.logger.Error("initial order fetch failed", "error", err)
	} else {
		s.store.Load(orders)
		s.logger.Info("board loaded", "orders", s.store.Snapshot().Len())
	}
	s.loaded = true
	s.renderLocked()
	s.mu.Unlock()

	s.push.Resubscribe(ctx)
	return nil
}

// Unmount stops the channel and releases audio. Only the first call does
// anything; later calls return its result.
func (s *Session) Unmount(ctx context.Context) error {
	s.unmountOnce.Do(func() {
		var errs []error
		if err := s.channel.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.engine.Close(); err != nil {
			errs = append(errs, err)
		}
		s.metrics.SessionUnmounted()
		s.unmountErr = errors.Join(errs...)
	})
	return s.unmountErr
}

// OrderPlaced handles an order.placed event. Each order alerts at most once
// per session, so a redelivered event is a no-op even after acknowledgment.
func (s *Session) OrderPlaced(o board.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted, err := s.store.Insert(o)
	if err != nil {
		s.logger.Info("placed order rejected", "order", o.ID.String(), "error", err)
		return
	}
	_, seen := s.alerted[o.ID]
	s.metrics.OrderPlaced(s.locationID, seen)
	if seen {
		return
	}
	s.alerted[o.ID] = struct{}{}

	if !inserted {
		// Already loaded by the initial fetch; alert on the stored copy.
		if current, ok := s.store.Snapshot().Get(o.ID); ok {
			o = current
		}
	}
	if s.queue.Push(o) {
		wasSounding := s.engine.Sounding()
		s.engine.Start()
		if !wasSounding && s.engine.Sounding() {
			s.metrics.AlarmStarted(s.locationID)
		}
		if s.push.CanNotify() {
			s.display.Notify(newOrderNotification(o))
		}
	}
	s.renderLocked()
}

// OrderStatusChanged handles an order.status_changed event.
func (s *Session) OrderStatusChanged(id board.Ref, fields board.Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.store.Merge(id, fields)
	if err != nil {
		s.logger.Info("status change rejected", "order", id.String(), "error", err)
		return
	}
	if !ok {
		s.logger.Debug("status change for unknown order", "order", id.String())
		return
	}
	s.renderLocked()
}

func (s *Session) ConnectionChanged(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
	s.renderLocked()
}

// Advance moves an order one step forward.
func (s *Session) Advance(ctx context.Context, id board.Ref) (board.Order, error) {
	o, ok := s.store.Snapshot().Get(id)
	if !ok {
		return board.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	started := time.Now()
	updated, err := s.status.Advance(ctx, o)
	s.metrics.Advanced(s.locationID, time.Since(started), err)
	if err != nil {
		s.logger.Error("advance failed", "order", id.String(), "error", err)
	}

	s.Render()
	return updated, err
}

// Acknowledge clears the alert queue and silences the alarm.
func (s *Session) Acknowledge(ctx context.Context) int {
	s.mu.Lock()
	cleared := s.queue.Acknowledge()
	s.engine.Stop()
	s.renderLocked()
	s.mu.Unlock()

	if len(cleared) == 0 {
		return 0
	}
	s.metrics.Acknowledged(s.locationID, len(cleared))

	if s.journal != nil {
		ack := Acknowledgment{
			ID:             uuid.New(),
			LocationID:     s.locationID,
			SessionID:      s.id,
			OrderIDs:       make([]string, len(cleared)),
			Count:          len(cleared),
			AcknowledgedAt: time.Now().UTC(),
		}
		for i, o := range cleared {
			ack.OrderIDs[i] = o.ID.String()
		}
		if err := s.journal.Record(ctx, ack); err != nil {
			s.logger.Error("cannot journal acknowledgment", "error", err)
		}
	}
	return len(cleared)
}

func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.SetMuted(muted)
	s.renderLocked()
}

// Gesture records a user interaction, unlocking audio on the first one.
func (s *Session) Gesture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Unlock(); err != nil {
		s.logger.Info("audio unlock failed", "error", err)
	}
	s.renderLocked()
}

// AudioRejected records that the display refused to play the alert clip. The
// alarm carries on through synthesized tones.
func (s *Session) AudioRejected(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("alert clip rejected by display", "reason", reason)
	s.engine.FileRejected()
	s.renderLocked()
}

func (s *Session) SetNotificationPermission(p push.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push.SetPermission(p)
	s.renderLocked()
}

// SubscribePush registers the display for push notifications.
func (s *Session) SubscribePush(ctx context.Context, sub push.Subscription, deviceLabel string) error {
	return s.push.Subscribe(ctx, sub, deviceLabel)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Render pushes the current view to the display.
func (s *Session) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

func (s *Session) renderLocked() {
	if s.display == nil {
		return
	}
	s.display.Render(s.viewLocked())
}

func (s *Session) viewLocked() View {
	snap := s.store.Snapshot()
	queued := s.queue.Orders(snap)
	return View{
		SessionID:  s.id,
		LocationID: s.locationID,
		Loaded:     s.loaded,
		Connected:  s.connected,
		Board:      board.Project(snap, s.status.InFlight),
		Alert: Alert{
			Open:   len(queued) > 0,
			Count:  len(queued),
			Orders: queued,
		},
		Audio:         s.engine.State(),
		Notifications: s.push.Permission(),
	}
}

func newOrderNotification(o board.Order) Notification {
	body := fmt.Sprintf("%d item(s)", len(o.Items))
	if o.TableIdentifier != "" {
		body = fmt.Sprintf("Table %s, %s", o.TableIdentifier, body)
	}
	return Notification{
		Title:   fmt.Sprintf("New order %s", o.OrderNumber),
		Body:    body,
		OrderID: o.ID,
	}
}
