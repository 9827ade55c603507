// Command habitd runs the habit engine as a daemon. It serves the status
// page and action API over HTTP, publishes notifications and snapshots to
// MQTT and periodically catches the state up to the wall clock.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/habit-tracker/internal/config"
	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/mqtt"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/status"
	"github.com/sweeney/habit-tracker/internal/store"
	"github.com/sweeney/habit-tracker/internal/syncer"
	"github.com/sweeney/habit-tracker/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	broker := flag.String("broker", "", `MQTT broker address ("off" disables)`)
	backend := flag.String("store", "", "State store: sqlite, redis or memory")
	sqlitePath := flag.String("sqlite", "", "SQLite database path")
	redisAddr := flag.String("redis", "", "Redis address")
	postgresDSN := flag.String("postgres", "", "Postgres DSN for snapshot uploads (empty to disable)")
	userID := flag.String("user", "", "User id snapshots are uploaded under")
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval (0 to disable)")
	advance := flag.Duration("advance", 0, "How often decay and sleep are caught up")
	logMode := flag.String("log-mode", "", "Log mode: dev, prod or quiet")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags override the file only when given explicitly.
	d := &cfg.Daemon
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			d.HTTPAddr = *httpAddr
		case "broker":
			d.Broker = *broker
		case "store":
			d.Store = *backend
		case "sqlite":
			d.SQLitePath = *sqlitePath
		case "redis":
			d.RedisAddr = *redisAddr
		case "postgres":
			d.PostgresDSN = *postgresDSN
		case "user":
			d.UserID = *userID
		case "heartbeat":
			d.Heartbeat = *heartbeat
		case "advance":
			d.AdvanceInterval = *advance
		case "log-mode":
			d.LogMode = *logMode
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	dc := cfg.Daemon
	lg, err := logger.New(dc.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := store.OpenBackend(ctx, dc)
	if err != nil {
		return err
	}
	st := store.New(backend, dc.StorageKey, cfg.Engine)
	defer st.Close()

	engine, err := stats.NewEngine(cfg.Engine)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	disp, err := dispatch.New(ctx, engine, st, lg, time.Now())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if dc.Broker != "" && dc.Broker != "off" {
		rp, err := mqtt.NewRealPublisher(dc.Broker, mqtt.NewTopics(dc.TopicPrefix, dc.UserID), lg)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	uploaders := syncer.Multi{syncer.MQTTUploader{Publisher: publisher}}
	if dc.PostgresDSN != "" {
		pg, err := syncer.OpenPostgres(ctx, dc.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		defer pg.Close()
		uploaders = append(uploaders, pg)
	}
	snapshots := syncer.New(dc.UserID, uploaders, dc.SyncInterval, lg)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		UserID:       dc.UserID,
		Store:        dc.Store,
		Broker:       dc.Broker,
		HTTPAddr:     dc.HTTPAddr,
		HeartbeatMs:  dc.Heartbeat.Milliseconds(),
		AdvanceMs:    dc.AdvanceInterval.Milliseconds(),
		SyncMs:       dc.SyncInterval.Milliseconds(),
		LevelTrigger: cfg.Engine.LevelTrigger,
	})
	tracker.Update(disp.State())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		lg.Warn("failed to publish startup event", "error", err)
	} else {
		lg.Info("published startup event")
	}

	var srv *web.Server
	if dc.HTTPAddr != "" {
		srv = web.New(dc.HTTPAddr, tracker, disp, lg)
	}

	lg.Info("started", "store", dc.Store, "broker", dc.Broker, "http", dc.HTTPAddr,
		"heartbeat", dc.Heartbeat.String(), "advance", dc.AdvanceInterval.String())

	ticker := time.NewTicker(dc.AdvanceInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error {
			lg.Info("http status server listening", "addr", dc.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			srv.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		l := newLoop(disp, publisher, mqttStatus, tracker, snapshots, dc.Heartbeat, lg)
		err := l.run(gctx, time.Now, ticker.C, sigCh)
		if srv != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				lg.Warn("http shutdown", "error", err)
			}
		}
		return err
	})
	return g.Wait()
}

// loop owns the daemon's main select: it feeds dispatcher outcomes to MQTT,
// the status tracker and the snapshot syncer.
type loop struct {
	disp       *dispatch.Dispatcher
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	snapshots  *syncer.Syncer
	heartbeat  time.Duration
	log        *logger.Logger

	outcomes    <-chan dispatch.Outcome
	unsubscribe func()
}

// newLoop subscribes to disp straight away so no outcome between
// construction and run is missed.
func newLoop(disp *dispatch.Dispatcher, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, snapshots *syncer.Syncer, heartbeat time.Duration, log *logger.Logger) *loop {
	outcomes, unsubscribe := disp.Subscribe(64)
	return &loop{
		disp:        disp,
		publisher:   publisher,
		mqttStatus:  mqttStatus,
		tracker:     tracker,
		snapshots:   snapshots,
		heartbeat:   heartbeat,
		log:         log,
		outcomes:    outcomes,
		unsubscribe: unsubscribe,
	}
}

func (l *loop) run(ctx context.Context, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	defer l.unsubscribe()

	lastHeartbeat := now()
	l.snapshots.Offer(ctx, l.disp.State(), lastHeartbeat)

	for {
		select {
		case s := <-sig:
			l.drain(ctx)
			l.log.Info("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			t := now()
			l.snapshots.Flush(ctx, t)
			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			l.refreshConnected()
			event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			if err := l.publisher.PublishSystem(event); err != nil {
				l.log.Warn("failed to publish shutdown event", "error", err)
			} else {
				l.log.Info("published shutdown event")
			}
			return nil

		case <-ctx.Done():
			return nil

		case out := <-l.outcomes:
			l.handle(ctx, out)

		case <-tick:
			t := now()
			l.disp.Advance(ctx, t)
			l.drain(ctx)
			l.snapshots.Flush(ctx, t)
			l.refreshConnected()

			if l.heartbeat > 0 && t.Sub(lastHeartbeat) >= l.heartbeat {
				lastHeartbeat = t
				snap := l.tracker.Snapshot()
				l.log.Info("heartbeat", "uptime", snap.Uptime().String(),
					"applied", snap.Counts.Applied, "ignored", snap.Counts.Ignored)
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					l.log.Warn("heartbeat publish error", "error", err)
				}
			}
		}
	}
}

// drain handles every outcome already queued without blocking.
func (l *loop) drain(ctx context.Context) {
	for {
		select {
		case out := <-l.outcomes:
			l.handle(ctx, out)
		default:
			return
		}
	}
}

func (l *loop) handle(ctx context.Context, out dispatch.Outcome) {
	l.tracker.Update(out.State)
	if out.Action.Type != "" {
		l.tracker.RecordAction(out.Applied)
	}
	l.tracker.RecordEvents(out.Events)
	for _, ev := range out.Events {
		if err := l.publisher.PublishEvent(ev); err != nil {
			// Don't crash on publish failure
			l.log.Warn("publish error", "type", string(ev.Type), "error", err)
		}
	}
	l.snapshots.Offer(ctx, out.State, out.At)
}

func (l *loop) refreshConnected() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}
