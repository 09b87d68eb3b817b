package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/services/posboard/internal/alarm"
	"github.com/appetiteclub/posboard/services/posboard/internal/backend"
	"github.com/appetiteclub/posboard/services/posboard/internal/mongo"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/appetiteclub/posboard/services/posboard/internal/session"
	"github.com/appetiteclub/posboard/services/posboard/internal/web"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	AppName    = "posboard"
	AppVersion = "0.1.0"
)

const (
	defaultNATSURL   = "nats://localhost:4222"
	defaultOrdersURL = "http://localhost:8085"
	defaultCurrency  = "USD"
)

// App wires the kitchen board service.
type App struct {
	config *aqm.Config
	logger aqm.Logger
	micro  *aqm.Micro
}

func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	alarmCfg, soundFile, err := a.alarmConfig()
	if err != nil {
		return err
	}

	clip, err := alarm.LoadClip(soundFile, alarmCfg.SampleRate)
	if err != nil {
		return fmt.Errorf("cannot load alert sound: %w", err)
	}

	natsURL := a.stringOrDef("nats.url", defaultNATSURL)
	subscriber, err := pkg.NewNATSSubscriber(natsURL,
		nats.Name(AppName),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return err
	}
	if !subscriber.Connected() {
		a.logger.Info("NATS not reachable yet, retrying in background", "url", natsURL)
	}

	ordersURL := a.stringOrDef("services.orders.url", defaultOrdersURL)
	orders := backend.NewOrderDataAccess(aqm.NewServiceClient(ordersURL), a.logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lifecycles := []interface{}{}

	var journal session.AckJournal
	var history session.AckHistory
	if mongoURL, _ := a.config.GetString("db.mongo.url"); mongoURL != "" {
		ackRepo := mongo.NewAckRepo(a.config, a.logger)
		journal, history = ackRepo, ackRepo
		lifecycles = append(lifecycles, ackRepo)
	} else {
		a.logger.Info("acknowledgment journal disabled, db.mongo.url not set")
	}

	registry := session.NewRegistry()
	deps := session.Deps{
		Orders:     orders,
		Subscriber: subscriber,
		Status:     subscriber,
		Journal:    journal,
		Directory:  push.NewDirectory(),
		Metrics:    session.NewMetrics(reg),
		Clock:      alarm.SystemClock{},
		Logger:     a.logger,
	}

	handler := web.NewHandler(registry, deps, web.Config{
		Currency: a.stringOrDef("board.currency", defaultCurrency),
		Alarm:    alarmCfg,
	}, clip, reg, a.logger).WithHistory(history)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})

	sessionLifecycle := aqm.LifecycleHooks{
		OnStop: registry.Stop,
	}
	subscriberLifecycle := aqm.LifecycleHooks{
		OnStop: func(context.Context) error { return subscriber.Close() },
	}
	lifecycles = append(lifecycles, sessionLifecycle, subscriberLifecycle)

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

func (a *App) stringOrDef(key, def string) string {
	if v, ok := a.config.GetString(key); ok && v != "" {
		return v
	}
	return def
}

func (a *App) alarmConfig() (alarm.Config, string, error) {
	cfg := alarm.Config{
		Volume:       alarm.DefaultVolume,
		BeepInterval: alarm.DefaultBeepInterval,
		SampleRate:   alarm.DefaultSampleRate,
	}

	if v, _ := a.config.GetString("alarm.volume"); v != "" {
		volume, err := strconv.ParseFloat(v, 64)
		if err != nil || volume <= 0 || volume > 1 {
			return cfg, "", fmt.Errorf("invalid alarm.volume %q", v)
		}
		cfg.Volume = volume
	}

	if v, _ := a.config.GetString("alarm.beep_interval"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil || interval <= 0 {
			return cfg, "", fmt.Errorf("invalid alarm.beep_interval %q", v)
		}
		cfg.BeepInterval = interval
	}

	if v, _ := a.config.GetString("alarm.sample_rate"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return cfg, "", fmt.Errorf("invalid alarm.sample_rate %q", v)
		}
		cfg.SampleRate = rate
	}

	soundFile, _ := a.config.GetString("alarm.sound_file")
	return cfg, soundFile, nil
}
