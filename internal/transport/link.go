// Package transport carries attribute writes and event reports between the
// controller and the Matter co-processor that owns sessions and the
// interaction model.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/event"
	"matter-go-home/internal/value"
)

// Link errors.
var (
	ErrClosed  = errors.New("transport: link closed")
	ErrTimeout = errors.New("transport: request timed out")
	ErrBusy    = errors.New("transport: too many requests in flight")
)

// State is the link connection state.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// Link is the controller side of the co-processor connection.
type Link interface {
	// WriteAttribute submits a write and returns; cb runs when the device
	// answers or the request expires.
	WriteAttribute(ctx context.Context, node uint64, endpoint uint16, req dispatch.WriteRequest, cb dispatch.Callback) error
	OnEventReport(handler func(event.Report))
	OnStateChange(handler func(State))
	Close() error
}

const (
	defaultRequestTimeout = 15 * time.Second
	defaultMaxInFlight    = 32
)

// Option configures a SerialLink.
type Option func(*SerialLink)

// WithRequestTimeout sets how long a write waits for its response.
func WithRequestTimeout(d time.Duration) Option {
	return func(l *SerialLink) {
		if d > 0 {
			l.requestTimeout = d
		}
	}
}

// WithMaxInFlight caps outstanding writes; further writes fail with ErrBusy.
func WithMaxInFlight(n int) Option {
	return func(l *SerialLink) {
		if n > 0 {
			l.maxInFlight = n
		}
	}
}

// WithMaxFrameSize bounds frame payloads in both directions.
func WithMaxFrameSize(n uint32) Option {
	return func(l *SerialLink) {
		if n > 0 {
			l.maxFrameSize = n
		}
	}
}

type pendingWrite struct {
	cb    dispatch.Callback
	timer *time.Timer
}

// SerialLink speaks length-prefixed CBOR frames over a serial port or any
// io.ReadWriteCloser.
type SerialLink struct {
	rwc    io.ReadWriteCloser
	writer *frameWriter
	reader *frameReader
	logger *slog.Logger

	requestTimeout time.Duration
	maxInFlight    int
	maxFrameSize   uint32
	inFlight       *semaphore.Weighted

	seq       atomic.Uint32
	pendingMu sync.Mutex
	pending   map[uint32]*pendingWrite

	handlerMu sync.RWMutex
	onReport  func(event.Report)
	onState   func(State)

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// NewSerialLink starts a link over rwc. The link owns rwc and closes it on Close.
func NewSerialLink(rwc io.ReadWriteCloser, logger *slog.Logger, opts ...Option) *SerialLink {
	l := &SerialLink{
		rwc:            rwc,
		logger:         logger,
		requestTimeout: defaultRequestTimeout,
		maxInFlight:    defaultMaxInFlight,
		maxFrameSize:   DefaultMaxFrameSize,
		pending:        make(map[uint32]*pendingWrite),
		done:           make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	l.inFlight = semaphore.NewWeighted(int64(l.maxInFlight))
	l.writer = &frameWriter{w: rwc, maxSize: l.maxFrameSize}
	l.reader = &frameReader{r: rwc, maxSize: l.maxFrameSize}

	l.wg.Add(1)
	go l.readLoop()
	return l
}

// WriteAttribute implements Link.
func (l *SerialLink) WriteAttribute(ctx context.Context, node uint64, endpoint uint16, req dispatch.WriteRequest, cb dispatch.Callback) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.inFlight.TryAcquire(1) {
		return ErrBusy
	}

	seq := l.seq.Add(1)
	f := &Frame{
		Kind:      KindWriteRequest,
		Seq:       seq,
		Node:      node,
		Endpoint:  endpoint,
		Cluster:   req.ClusterID,
		Attribute: req.AttributeID,
		TimedMs:   uint32(req.TimedTimeout.Milliseconds()),
		Value:     value.Wire(req.Value),
		Null:      req.Value.IsNull(),
	}
	data, err := encodeFrame(f)
	if err != nil {
		l.inFlight.Release(1)
		return err
	}

	// The device may take the whole timed window before answering.
	timeout := l.requestTimeout + req.TimedTimeout
	p := &pendingWrite{cb: cb}
	l.pendingMu.Lock()
	l.pending[seq] = p
	p.timer = time.AfterFunc(timeout, func() { l.expire(seq) })
	l.pendingMu.Unlock()

	if err := l.writer.writeFrame(data); err != nil {
		if l.take(seq) != nil {
			l.inFlight.Release(1)
		}
		return err
	}

	l.logger.Debug("link TX", "kind", f.Kind, "seq", seq, "node", fmt.Sprintf("0x%016X", node),
		"endpoint", endpoint, "cluster", fmt.Sprintf("0x%04X", req.ClusterID),
		"attribute", fmt.Sprintf("0x%04X", req.AttributeID), "timed_ms", f.TimedMs)
	return nil
}

// take removes and returns the pending entry for seq, or nil.
func (l *SerialLink) take(seq uint32) *pendingWrite {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	p, ok := l.pending[seq]
	if !ok {
		return nil
	}
	delete(l.pending, seq)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}

func (l *SerialLink) expire(seq uint32) {
	p := l.take(seq)
	if p == nil {
		return
	}
	l.inFlight.Release(1)
	l.logger.Warn("link write timed out", "seq", seq)
	complete(p.cb, dispatch.Result{Status: dispatch.StatusTimeout, Err: ErrTimeout})
}

func complete(cb dispatch.Callback, res dispatch.Result) {
	if cb != nil {
		cb(res)
	}
}

// OnEventReport registers the handler for event report frames.
func (l *SerialLink) OnEventReport(handler func(event.Report)) {
	l.handlerMu.Lock()
	defer l.handlerMu.Unlock()
	l.onReport = handler
}

// OnStateChange registers the handler for connection state changes.
func (l *SerialLink) OnStateChange(handler func(State)) {
	l.handlerMu.Lock()
	defer l.handlerMu.Unlock()
	l.onState = handler
}

func (l *SerialLink) setState(s State) {
	l.handlerMu.RLock()
	h := l.onState
	l.handlerMu.RUnlock()
	if h != nil {
		h(s)
	}
}

// Pending returns the number of writes waiting for a response.
func (l *SerialLink) Pending() int {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return len(l.pending)
}

func (l *SerialLink) readLoop() {
	defer l.wg.Done()

	backoff := 10 * time.Millisecond
	const maxBackoff = 5 * time.Second

	for {
		data, err := l.reader.readFrame()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || strings.Contains(err.Error(), "closed") {
				l.logger.Warn("link disconnected", "err", err)
				l.closed.Store(true)
				l.failPending(ErrClosed)
				l.setState(StateDisconnected)
				return
			}
			if errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrFrameEmpty) {
				l.logger.Warn("link dropped frame", "err", err)
				continue
			}
			l.logger.Error("link read error", "err", err)
			select {
			case <-time.After(backoff):
			case <-l.done:
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = 10 * time.Millisecond

		f, err := decodeFrame(data)
		if err != nil {
			l.logger.Warn("link decode error", "err", err, "len", len(data))
			continue
		}
		l.logger.Debug("link RX", "kind", f.Kind, "seq", f.Seq, "status", f.Status)

		switch f.Kind {
		case KindWriteResponse:
			p := l.take(f.Seq)
			if p == nil {
				l.logger.Warn("link orphaned response (too late)", "seq", f.Seq, "status", dispatch.Status(f.Status))
				continue
			}
			l.inFlight.Release(1)
			complete(p.cb, dispatch.Result{Status: dispatch.Status(f.Status)})

		case KindEventReport:
			if f.Event == nil {
				l.logger.Warn("link event frame without report", "seq", f.Seq)
				continue
			}
			l.handlerMu.RLock()
			h := l.onReport
			l.handlerMu.RUnlock()
			if h != nil {
				h(*f.Event)
			}

		default:
			l.logger.Warn("link unexpected frame", "kind", f.Kind)
		}
	}
}

func (l *SerialLink) failPending(err error) {
	l.pendingMu.Lock()
	ps := make([]*pendingWrite, 0, len(l.pending))
	for seq, p := range l.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		ps = append(ps, p)
		delete(l.pending, seq)
	}
	l.pendingMu.Unlock()

	for _, p := range ps {
		l.inFlight.Release(1)
		complete(p.cb, dispatch.Result{Status: dispatch.StatusFailure, Err: err})
	}
}

// Close stops the read loop, closes the port and fails outstanding writes
// with ErrClosed.
func (l *SerialLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
		err = l.rwc.Close()
		l.wg.Wait()
		l.failPending(ErrClosed)
	})
	return err
}
