package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/aquamarinepk/aqm"
)

// ServiceWorkerPath is where displays register the notification worker.
const ServiceWorkerPath = "/sw.js"

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	}
	return "", fmt.Errorf("unknown notification permission %q", s)
}

var (
	ErrInvalidSubscription = errors.New("invalid push subscription")
	ErrNotGranted          = errors.New("notification permission not granted")
)

type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a W3C PushSubscription as serialized by the browser.
type Subscription struct {
	Endpoint       string `json:"endpoint"`
	ExpirationTime *int64 `json:"expirationTime"`
	Keys           Keys   `json:"keys"`
}

func (s Subscription) Validate() error {
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an https URL", ErrInvalidSubscription)
	}
	if s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return fmt.Errorf("%w: missing keys", ErrInvalidSubscription)
	}
	return nil
}

// Registrar forwards subscriptions to the backend.
type Registrar interface {
	RegisterPushSubscription(ctx context.Context, locationID string, sub Subscription, deviceLabel string) error
}

// Directory remembers the last subscription per display across sessions.
type Directory struct {
	mu   sync.RWMutex
	subs map[string]remembered
}

type remembered struct {
	sub         Subscription
	deviceLabel string
}

func NewDirectory() *Directory {
	return &Directory{subs: make(map[string]remembered)}
}

func (d *Directory) remember(key string, sub Subscription, deviceLabel string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[key] = remembered{sub: sub, deviceLabel: deviceLabel}
}

func (d *Directory) lookup(key string) (remembered, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.subs[key]
	return r, ok
}

// Manager tracks notification permission and the push subscription for one
// display.
type Manager struct {
	mu          sync.Mutex
	locationID  string
	deviceKey   string
	registrar   Registrar
	directory   *Directory
	logger      aqm.Logger
	permission  Permission
	current     *Subscription
	deviceLabel string
	resubscribe sync.Once
}

// NewManager builds the manager for one display. deviceKey identifies the
// display across reconnects; directory may be nil.
func NewManager(locationID, deviceKey string, registrar Registrar, directory *Directory, logger aqm.Logger) *Manager {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Manager{
		locationID: locationID,
		deviceKey:  deviceKey,
		registrar:  registrar,
		directory:  directory,
		logger:     logger,
		permission: PermissionDefault,
	}
}

func (m *Manager) directoryKey() string {
	return m.locationID + "/" + m.deviceKey
}

func (m *Manager) Permission() Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permission
}

func (m *Manager) SetPermission(p Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = p
}

// CanNotify reports whether OS notifications may be shown.
func (m *Manager) CanNotify() bool {
	return m.Permission() == PermissionGranted
}

func (m *Manager) Subscription() (Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Subscription{}, false
	}
	return *m.current, true
}

// Subscribe records sub, reusing the existing subscription for the same
// endpoint, and forwards it to the backend. Errors are logged and returned for
// the caller to report; they never affect the board.
func (m *Manager) Subscribe(ctx context.Context, sub Subscription, deviceLabel string) error {
	if err := sub.Validate(); err != nil {
		m.logger.Info("push subscription rejected", "location", m.locationID, "error", err)
		return err
	}

	m.mu.Lock()
	if m.permission != PermissionGranted {
		m.mu.Unlock()
		return ErrNotGranted
	}
	if m.current != nil && m.current.Endpoint == sub.Endpoint {
		sub = *m.current
	} else {
		m.current = &sub
	}
	m.deviceLabel = deviceLabel
	m.mu.Unlock()

	if m.directory != nil && m.deviceKey != "" {
		m.directory.remember(m.directoryKey(), sub, deviceLabel)
	}
	return m.forward(ctx, sub, deviceLabel)
}

// Resubscribe re-forwards the known subscription once per manager when
// permission was granted before this session started.
func (m *Manager) Resubscribe(ctx context.Context) {
	m.resubscribe.Do(func() {
		m.mu.Lock()
		granted := m.permission == PermissionGranted
		current := m.current
		label := m.deviceLabel
		m.mu.Unlock()

		if !granted {
			return
		}
		if current == nil && m.directory != nil && m.deviceKey != "" {
			r, ok := m.directory.lookup(m.directoryKey())
			if !ok {
				return
			}
			m.mu.Lock()
			m.current = &r.sub
			m.deviceLabel = r.deviceLabel
			m.mu.Unlock()
			current, label = &r.sub, r.deviceLabel
		}
		if current == nil {
			return
		}
		_ = m.forward(ctx, *current, label)
	})
}

func (m *Manager) forward(ctx context.Context, sub Subscription, deviceLabel string) error {
	if m.registrar == nil {
		return nil
	}
	if err := m.registrar.RegisterPushSubscription(ctx, m.locationID, sub, deviceLabel); err != nil {
		m.logger.Error("cannot register push subscription", "location", m.locationID, "error", err)
		return fmt.Errorf("register push subscription: %w", err)
	}
	m.logger.Debug("push subscription registered", "location", m.locationID)
	return nil
}
