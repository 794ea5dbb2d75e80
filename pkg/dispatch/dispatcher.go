// Package dispatch routes gateway events to their handlers and answers failed commands.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/swgoh/prereqbot/pkg/config"
	"github.com/swgoh/prereqbot/pkg/events"
	"github.com/swgoh/prereqbot/pkg/failure"
	"github.com/swgoh/prereqbot/pkg/infrastructure/persistence"
	"github.com/swgoh/prereqbot/pkg/logger"
	"github.com/swgoh/prereqbot/pkg/response"
)

const component = "dispatch"

// ErrAlreadyStarted is returned by Start on a dispatcher that left Disconnected.
var ErrAlreadyStarted = errors.New("dispatcher already started")

// ErrNotStarted is returned by Run before Start.
var ErrNotStarted = errors.New("dispatcher not started")

// ConfigStore is the part of config.Store the dispatcher needs.
type ConfigStore interface {
	Current() (config.Config, error)
	Reload() (config.Config, error)
}

// Sender delivers a response to the place an event came from.
type Sender interface {
	Send(ctx context.Context, to events.Target, r response.Response) error
}

// Source yields events in the order they were received.
type Source interface {
	Consume(ctx context.Context) (events.Event, bool)
}

// Recorder persists command failures.
type Recorder interface {
	Record(ctx context.Context, rec persistence.FailureRecord) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAudit records every failed command to r.
func WithAudit(r Recorder) Option {
	return func(d *Dispatcher) { d.audit = r }
}

// Dispatcher handles each event on its own goroutine so a slow reload or send
// never holds up the events behind it.
type Dispatcher struct {
	store  ConfigStore
	sender Sender
	audit  Recorder

	state atomic.Int32
	wg    sync.WaitGroup
}

// New creates a dispatcher in the Disconnected state.
func New(store ConfigStore, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, sender: sender}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current connection state.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Start moves the dispatcher to Connecting. The store must already hold a configuration.
func (d *Dispatcher) Start() error {
	if _, err := d.store.Current(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if !d.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return ErrAlreadyStarted
	}
	logger.DebugCF(component, "State changed", map[string]interface{}{
		"from": Disconnected.String(),
		"to":   Connecting.String(),
	})
	return nil
}

// Run consumes src until ctx is done or src is exhausted, then waits for
// in-flight handlers. State transitions are applied in receive order.
// Cancelling ctx stops consumption only; handlers already running finish
// their reload, send and audit with a context that is never cancelled.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	if d.State() == Disconnected {
		return ErrNotStarted
	}
	defer d.wg.Wait()

	hctx := context.WithoutCancel(ctx)
	for {
		ev, ok := src.Consume(ctx)
		if !ok {
			return nil
		}
		d.advance(ev)

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handle(hctx, ev)
		}()
	}
}

// Dispatch handles a single event on the calling goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) {
	d.advance(ev)
	d.handle(ctx, ev)
}

// Wait blocks until all handlers started by Run have returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) advance(ev events.Event) {
	var from State
	switch ev.(type) {
	case events.Ready:
		from = State(d.state.Swap(int32(Ready)))
		if from == Ready {
			return
		}
		if from == Disconnected {
			logger.WarnC(component, "Ready received before the dispatcher was started")
		}
	default:
		if !d.state.CompareAndSwap(int32(Ready), int32(Connected)) {
			return
		}
		from = Ready
	}
	logger.DebugCF(component, "State changed", map[string]interface{}{
		"from":  from.String(),
		"to":    d.State().String(),
		"event": string(ev.Kind()),
	})
}

func (d *Dispatcher) handle(ctx context.Context, ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF(component, "Event handler panicked", map[string]interface{}{
				"event_id": ev.Head().ID,
				"kind":     string(ev.Kind()),
				"panic":    fmt.Sprint(r),
			})
		}
	}()

	switch e := ev.(type) {
	case events.Ready:
		logger.InfoCF(component, "Client is ready to process events", map[string]interface{}{
			"user": e.UserName,
		})
	case events.GuildAvailable:
		logger.InfoCF(component, "Guild available: "+e.GuildName, map[string]interface{}{
			"guild":    e.GuildName,
			"guild_id": e.Origin.GuildID,
		})
	case events.CommandSucceeded:
		logger.InfoCF(component, fmt.Sprintf("%s successfully executed '%s'", e.UserName, e.CommandName), map[string]interface{}{
			"user":    e.UserName,
			"command": e.CommandName,
		})
	case events.CommandFailed:
		d.handleFailure(ctx, e)
	default:
		logger.WarnCF(component, "Unhandled event", map[string]interface{}{
			"kind": string(ev.Kind()),
		})
	}
}

func (d *Dispatcher) handleFailure(ctx context.Context, e events.CommandFailed) {
	cfg, err := d.store.Reload()
	if err != nil {
		logger.WarnCF(component, "Configuration reload failed, using previous configuration", map[string]interface{}{
			"error": err,
		})
		cfg, _ = d.store.Current()
	}

	command := e.CommandName
	if command == "" {
		command = "unknown"
	}
	identity := failure.Identify(e.Err)
	logger.ErrorCF(component, fmt.Sprintf("%s tried executing '%s' but it errored", e.UserName, command), map[string]interface{}{
		"user":     e.UserName,
		"command":  command,
		"failure":  identity,
		"message":  e.Message(),
		"event_id": e.ID,
	})

	class := failure.Classify(e.Err, e.Data)
	resp, ok := response.Build(class, response.Context{
		UserName:    e.UserName,
		CommandName: e.CommandName,
		Prefix:      cfg.Prefix,
	})

	responded := false
	if ok {
		if err := d.sender.Send(ctx, e.Origin, resp); err != nil {
			logger.WarnCF(component, "Failed to send response", map[string]interface{}{
				"user":    e.UserName,
				"command": command,
				"title":   resp.Title,
				"error":   err,
			})
		} else {
			responded = true
		}
	}

	if d.audit == nil {
		return
	}
	err = d.audit.Record(ctx, persistence.FailureRecord{
		EventID:    e.ID,
		OccurredAt: e.ReceivedAt,
		GuildID:    e.Origin.GuildID,
		ChannelID:  e.Origin.ChannelID,
		UserName:   e.UserName,
		Command:    e.CommandName,
		Identity:   identity,
		Category:   class.Category.String(),
		Message:    e.Message(),
		Hints:      append(append([]string(nil), class.Hints...), class.Fields...),
		Responded:  responded,
	})
	if err != nil {
		logger.WarnCF(component, "Failed to record command failure", map[string]interface{}{
			"event_id": e.ID,
			"error":    err,
		})
	}
}
