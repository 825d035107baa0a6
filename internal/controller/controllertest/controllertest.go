// Package controllertest provides a link double and a ready controller for
// tests of the packages built on top of the controller.
package controllertest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/event"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/store"
	"matter-go-home/internal/transport"
)

// Write is one write that reached the link.
type Write struct {
	Node     uint64
	Endpoint uint16
	Req      dispatch.WriteRequest
	Cb       dispatch.Callback
}

// Link is an in-memory transport.Link. Writes are recorded and stay pending
// until Complete is called.
type Link struct {
	mu       sync.Mutex
	writes   []Write
	Err      error
	onReport func(event.Report)
	onState  func(transport.State)
	notify   chan struct{}
}

// NewLink returns an empty link.
func NewLink() *Link {
	return &Link{notify: make(chan struct{}, 64)}
}

// WriteAttribute implements transport.Link.
func (l *Link) WriteAttribute(_ context.Context, node uint64, endpoint uint16, req dispatch.WriteRequest, cb dispatch.Callback) error {
	l.mu.Lock()
	if l.Err != nil {
		err := l.Err
		l.mu.Unlock()
		return err
	}
	l.writes = append(l.writes, Write{node, endpoint, req, cb})
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
	return nil
}

// OnEventReport implements transport.Link.
func (l *Link) OnEventReport(h func(event.Report)) {
	l.mu.Lock()
	l.onReport = h
	l.mu.Unlock()
}

// OnStateChange implements transport.Link.
func (l *Link) OnStateChange(h func(transport.State)) {
	l.mu.Lock()
	l.onState = h
	l.mu.Unlock()
}

// Close implements transport.Link.
func (l *Link) Close() error { return nil }

// Writes returns a copy of the recorded writes.
func (l *Link) Writes() []Write {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Write(nil), l.writes...)
}

// Written waits until n writes have been recorded and returns them.
func (l *Link) Written(t testing.TB, n int) []Write {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if ws := l.Writes(); len(ws) >= n {
			return ws
		}
		select {
		case <-l.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d writes, have %d", n, len(l.Writes()))
		}
	}
}

// Complete delivers a result for write i.
func (l *Link) Complete(i int, res dispatch.Result) {
	l.mu.Lock()
	w := l.writes[i]
	l.mu.Unlock()
	if w.Cb != nil {
		w.Cb(res)
	}
}

// Report injects an event report as if it came off the wire.
func (l *Link) Report(rep event.Report) {
	l.mu.Lock()
	h := l.onReport
	l.mu.Unlock()
	if h != nil {
		h(rep)
	}
}

// SetState injects a link state change.
func (l *Link) SetState(s transport.State) {
	l.mu.Lock()
	h := l.onState
	l.mu.Unlock()
	if h != nil {
		h(s)
	}
}

// Logger returns a logger that only prints errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// New returns a controller over the standard clusters, a bolt store in a
// temp dir and a fresh Link.
func New(t testing.TB, cfg controller.Config) (*controller.Controller, *Link) {
	t.Helper()
	logger := Logger()
	reg := schema.NewRegistry(logger)
	for _, c := range clusters.Standard() {
		reg.Register(c)
	}
	writes, err := controller.NewWriteRegistry(reg)
	if err != nil {
		t.Fatalf("NewWriteRegistry: %v", err)
	}
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	link := NewLink()
	c := controller.New(link, st, reg, writes, controller.NewEventBus(logger), cfg,
		controller.LinkConfig{Port: "/dev/ttyTEST", Baud: 115200}, logger)
	t.Cleanup(c.Stop)
	return c, link
}

// StateChange returns a BooleanState StateChange report for endpoint 1.
func StateChange(node, number uint64, state bool) event.Report {
	return event.Report{
		Node:        node,
		Endpoint:    1,
		Cluster:     clusters.BooleanState.ID,
		Event:       0,
		Number:      number,
		Priority:    uint8(schema.PriorityInfo),
		TimestampUs: 1700000000000000 + int64(number),
		Fields:      map[uint32]any{0: state},
	}
}
