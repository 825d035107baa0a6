// Package controller ties the schema, the write dispatch table, the link to
// the co-processor and the store together.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/store"
	"matter-go-home/internal/transport"
)

// Config holds controller configuration.
type Config struct {
	// JournalLimit caps the number of journaled events; zero keeps all.
	JournalLimit int
	// DropStaleEvents discards reports whose event number is not above the
	// last one journaled for the node.
	DropStaleEvents bool
}

// LinkConfig holds link port configuration for display purposes.
type LinkConfig struct {
	Port string
	Baud int
}

const pruneEvery = 100

// ParseNodeID parses a node ID given as decimal, "0x"-prefixed hex or bare
// 16-digit hex.
func ParseNodeID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ":", "")
	var (
		id  uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		id, err = strconv.ParseUint(s[2:], 16, 64)
	case len(s) == 16:
		id, err = strconv.ParseUint(s, 16, 64)
	default:
		id, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return id, nil
}

// FormatNodeID renders a node ID the way the API and MQTT topics use it.
func FormatNodeID(id uint64) string {
	return fmt.Sprintf("%016X", id)
}

// Controller receives events from the link and performs attribute writes.
type Controller struct {
	link     transport.Link
	store    store.Store
	schema   *schema.Registry
	writes   *dispatch.Registry
	events   *EventBus
	logger   *slog.Logger
	config   Config
	linkCfg  LinkConfig
	now      func() time.Time
	appended atomic.Uint64

	nodeMu    sync.Mutex // serializes node table updates from the read loop and API
	linkState atomic.Value

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a controller and registers its link handlers.
func New(link transport.Link, st store.Store, reg *schema.Registry, writes *dispatch.Registry, events *EventBus, cfg Config, linkCfg LinkConfig, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		link:    link,
		store:   st,
		schema:  reg,
		writes:  writes,
		events:  events,
		logger:  logger,
		config:  cfg,
		linkCfg: linkCfg,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.linkState.Store(transport.StateConnected)
	c.registerLinkHandlers()
	return c
}

// Context returns the controller's context, which is cancelled on Stop().
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Stop cancels the controller context.
func (c *Controller) Stop() {
	c.cancel()
}

// LinkState returns the last reported link state.
func (c *Controller) LinkState() transport.State {
	return c.linkState.Load().(transport.State)
}

// Info returns a summary for the status API.
func (c *Controller) Info() map[string]any {
	return map[string]any{
		"link_state":    c.LinkState(),
		"port":          c.linkCfg.Port,
		"baud":          c.linkCfg.Baud,
		"clusters":      c.schema.Len(),
		"journal_limit": c.config.JournalLimit,
	}
}

// Store returns the store.
func (c *Controller) Store() store.Store {
	return c.store
}

// Schema returns the cluster schema registry.
func (c *Controller) Schema() *schema.Registry {
	return c.schema
}

// Writes returns the attribute write dispatch table.
func (c *Controller) Writes() *dispatch.Registry {
	return c.writes
}

// Events returns the event bus.
func (c *Controller) Events() *EventBus {
	return c.events
}

func (c *Controller) registerLinkHandlers() {
	c.link.OnEventReport(c.handleReport)
	c.link.OnStateChange(func(s transport.State) {
		c.linkState.Store(s)
		c.logger.Info("link state", "state", s)
		c.events.Emit(Event{Type: EventLinkState, Data: s})
	})
}
