// Package dispatch owns the live engine state. It serializes every action
// and time advance, persists the result and fans the change out to
// subscribers. Callers that need to trigger actions hold a *Dispatcher.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/habit-tracker/internal/logger"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/store"
)

// ErrUnknownActivity is returned by ApplyActivity for names with no action.
var ErrUnknownActivity = errors.New("unknown activity")

// maxSaveAttempts bounds how often one change is replayed after another
// process wrote the stored state first.
const maxSaveAttempts = 3

// StateStore loads and saves the engine state. Save returns an error
// wrapping store.ErrConflict when the stored state changed since the last
// Load or Save.
type StateStore interface {
	Load(ctx context.Context) (stats.State, error)
	Save(ctx context.Context, s stats.State) error
}

// EventLog records notifications. A StateStore may optionally implement it.
type EventLog interface {
	AppendEvent(ctx context.Context, ev stats.Event) error
}

// Outcome describes one completed dispatch or advance.
type Outcome struct {
	// Action is the zero value for a plain time advance.
	Action  stats.Action
	Applied bool
	At      time.Time
	State   stats.State
	Events  []stats.Event
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	engine *stats.Engine
	store  StateStore
	events EventLog
	log    *logger.Logger
	newID  func() string

	mu    sync.Mutex
	state stats.State

	subMu  sync.Mutex
	subs   map[int]chan Outcome
	nextID int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIDFunc overrides event id generation.
func WithIDFunc(f func() string) Option {
	return func(d *Dispatcher) { d.newID = f }
}

// New loads the persisted state, or starts fresh when none can be trusted.
// Only a failing store (not a missing or stale blob) is an error.
func New(ctx context.Context, engine *stats.Engine, st StateStore, log *logger.Logger, now time.Time, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		engine: engine,
		store:  st,
		log:    log.With("component", "dispatch"),
		newID:  uuid.NewString,
		subs:   make(map[int]chan Outcome),
	}
	if el, ok := st.(EventLog); ok {
		d.events = el
	}
	for _, opt := range opts {
		opt(d)
	}

	loaded, err := st.Load(ctx)
	switch {
	case err == nil:
		d.state = loaded
		d.log.Info("loaded state", "level", loaded.SkillLevel, "coins", loaded.Coins, "health", loaded.Health)
		return d, nil
	case errors.Is(err, store.ErrNotFound):
		d.log.Info("no stored state, starting fresh")
	case errors.Is(err, stats.ErrVersionMismatch), errors.Is(err, stats.ErrMalformed):
		d.log.Warn("discarding untrusted stored state", "error", err)
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}

	d.state = engine.NewState(now)
	err = st.Save(ctx, d.state)
	if errors.Is(err, store.ErrConflict) {
		// Another process created the state first; use theirs.
		if loaded, lerr := st.Load(ctx); lerr == nil {
			d.state = loaded
			return d, nil
		}
	}
	if err != nil {
		d.log.Error("failed to save state", "error", err)
	}
	return d, nil
}

// State returns a copy of the current state.
func (d *Dispatcher) State() stats.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Config returns the engine configuration.
func (d *Dispatcher) Config() stats.Config {
	return d.engine.Config()
}

// Dispatch applies a at now. Guarded no-ops are reported through
// Outcome.Applied, never as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, a stats.Action, now time.Time) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, next, applied := d.persist(ctx, func(s stats.State) (stats.State, bool) {
		res := d.engine.Dispatch(s, a, now)
		return res.State, res.Applied
	})
	out := d.commit(ctx, prev, next, now)
	out.Action = a
	out.Applied = applied

	d.log.Debug("dispatched", "action", a.String(), "applied", applied,
		"health", out.State.Health, "level", out.State.SkillLevel, "coins", out.State.Coins)
	d.publish(out)
	return out
}

// Advance catches the state up to now: overdue sleep sessions resolve and
// decay accrues.
func (d *Dispatcher) Advance(ctx context.Context, now time.Time) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, next, _ := d.persist(ctx, func(s stats.State) (stats.State, bool) {
		return d.engine.Advance(s, now), true
	})
	out := d.commit(ctx, prev, next, now)
	d.publish(out)
	return out
}

// ApplyActivity dispatches the action mapped to an activity name.
func (d *Dispatcher) ApplyActivity(ctx context.Context, name string, now time.Time) (Outcome, error) {
	a, ok := stats.ParseActivity(name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownActivity, name)
	}
	return d.Dispatch(ctx, a, now), nil
}

// persist computes the change with step and saves it. When another process
// wrote the stored state first, the stored state is reloaded and step is
// replayed on it. It returns the state step last started from, its result
// and whether it applied. Must be called with mu held.
func (d *Dispatcher) persist(ctx context.Context, step func(stats.State) (stats.State, bool)) (stats.State, stats.State, bool) {
	prev := d.state
	next, applied := step(prev)
	for attempt := 1; ; attempt++ {
		err := d.store.Save(ctx, next)
		if err == nil {
			return prev, next, applied
		}
		if !errors.Is(err, store.ErrConflict) || attempt == maxSaveAttempts {
			d.log.Error("failed to save state", "error", err, "attempt", attempt)
			return prev, next, applied
		}
		loaded, err := d.store.Load(ctx)
		if err != nil {
			d.log.Error("failed to reload state", "error", err)
			return prev, next, applied
		}
		d.log.Info("stored state changed by another writer, replaying", "attempt", attempt)
		prev = loaded
		next, applied = step(prev)
	}
}

// commit must be called with mu held.
func (d *Dispatcher) commit(ctx context.Context, prev, next stats.State, now time.Time) Outcome {
	events := stats.DiffEvents(&prev, next, now)
	for i := range events {
		events[i].ID = d.newID()
	}
	d.state = next

	for _, ev := range events {
		d.log.Info("event", "type", string(ev.Type), "level", ev.SkillLevel, "message", ev.Message())
		if d.events != nil {
			if err := d.events.AppendEvent(ctx, ev); err != nil {
				d.log.Warn("failed to record event", "type", string(ev.Type), "error", err)
			}
		}
	}
	return Outcome{At: now, State: next.Clone(), Events: events}
}

// Subscribe returns a channel receiving every Outcome in dispatch order.
// Slow subscribers miss outcomes rather than stall dispatch. Call cancel to
// unsubscribe.
func (d *Dispatcher) Subscribe(buffer int) (<-chan Outcome, func()) {
	ch := make(chan Outcome, buffer)
	d.subMu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = ch
	d.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (d *Dispatcher) publish(out Outcome) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for id, ch := range d.subs {
		select {
		case ch <- out:
		default:
			d.log.Warn("subscriber lagging, dropped outcome", "subscriber", id)
		}
	}
}
