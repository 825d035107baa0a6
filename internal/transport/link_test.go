package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/event"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/value"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// peer plays the co-processor on the far end of a net.Pipe.
type peer struct {
	conn net.Conn
	r    *frameReader
	w    *frameWriter
}

func newPipeLink(t *testing.T, opts ...Option) (*SerialLink, *peer) {
	t.Helper()
	a, b := net.Pipe()
	l := NewSerialLink(a, testLogger(), opts...)
	p := &peer{
		conn: b,
		r:    &frameReader{r: b, maxSize: DefaultMaxFrameSize},
		w:    &frameWriter{w: b, maxSize: DefaultMaxFrameSize},
	}
	t.Cleanup(func() {
		l.Close()
		b.Close()
	})
	return l, p
}

func (p *peer) recv(t *testing.T) *Frame {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := p.r.readFrame()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	f, err := decodeFrame(data)
	if err != nil {
		t.Fatalf("peer decode: %v", err)
	}
	return f
}

func (p *peer) send(t *testing.T, f *Frame) {
	t.Helper()
	data, err := encodeFrame(f)
	if err != nil {
		t.Fatalf("peer encode: %v", err)
	}
	if err := p.w.writeFrame(data); err != nil {
		t.Fatalf("peer write: %v", err)
	}
}

func waitResult(t *testing.T, ch <-chan dispatch.Result) dispatch.Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
		return dispatch.Result{}
	}
}

func TestFraming(t *testing.T) {
	var buf bytes.Buffer
	fw := &frameWriter{w: &buf, maxSize: 16}
	if err := fw.writeFrame([]byte("hello")); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if got, want := buf.Len(), lengthPrefixSize+5; got != want {
		t.Errorf("encoded len = %d, want %d", got, want)
	}
	if err := fw.writeFrame(nil); !errors.Is(err, ErrFrameEmpty) {
		t.Errorf("empty frame err = %v, want ErrFrameEmpty", err)
	}
	if err := fw.writeFrame(make([]byte, 17)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("large frame err = %v, want ErrFrameTooLarge", err)
	}

	fr := &frameReader{r: &buf, maxSize: 16}
	got, err := fr.readFrame()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("payload = %q, want hello", got)
	}
	if _, err := fr.readFrame(); err != io.EOF {
		t.Errorf("drained err = %v, want io.EOF", err)
	}

	truncated := bytes.NewReader([]byte{0, 0, 0, 8, 'a', 'b'})
	fr = &frameReader{r: truncated, maxSize: 16}
	if _, err := fr.readFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("truncated err = %v, want ErrFrameTruncated", err)
	}
}

func TestFramingSkipsRejectedFrames(t *testing.T) {
	var buf bytes.Buffer
	big := &frameWriter{w: &buf, maxSize: DefaultMaxFrameSize}
	if err := big.writeFrame(bytes.Repeat([]byte{0xAA}, 100)); err != nil {
		t.Fatal(err)
	}
	buf.Write([]byte{0, 0, 0, 0})
	if err := big.writeFrame([]byte("next")); err != nil {
		t.Fatal(err)
	}

	fr := &frameReader{r: &buf, maxSize: 64}
	if _, err := fr.readFrame(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("oversized err = %v, want ErrFrameTooLarge", err)
	}
	if _, err := fr.readFrame(); !errors.Is(err, ErrFrameEmpty) {
		t.Fatalf("empty err = %v, want ErrFrameEmpty", err)
	}
	got, err := fr.readFrame()
	if err != nil || string(got) != "next" {
		t.Errorf("after rejected frames got %q, %v; want \"next\"", got, err)
	}

	short := bytes.NewReader([]byte{0, 0, 0, 100, 0xAA, 0xAA})
	fr = &frameReader{r: short, maxSize: 64}
	if _, err := fr.readFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("short oversized err = %v, want ErrFrameTruncated", err)
	}
}

func TestWriteAttributeRoundTrip(t *testing.T) {
	l, p := newPipeLink(t)

	results := make(chan dispatch.Result, 1)
	req := dispatch.WriteRequest{
		ClusterID:   0x0006,
		AttributeID: 0x4001,
		Ref:         schema.Scalar(schema.TypeUint16),
		Value:       value.Of(uint16(300)),
	}
	go func() {
		if err := l.WriteAttribute(context.Background(), 0x1122, 1, req, func(r dispatch.Result) { results <- r }); err != nil {
			t.Errorf("WriteAttribute: %v", err)
		}
	}()

	f := p.recv(t)
	if f.Kind != KindWriteRequest {
		t.Fatalf("kind = %v, want write_request", f.Kind)
	}
	if f.Node != 0x1122 || f.Endpoint != 1 || f.Cluster != 0x0006 || f.Attribute != 0x4001 {
		t.Errorf("frame addressing = %+v", f)
	}
	if f.TimedMs != 0 {
		t.Errorf("TimedMs = %d, want 0", f.TimedMs)
	}
	if got, ok := f.Value.(uint64); !ok || got != 300 {
		t.Errorf("Value = %v (%T), want 300", f.Value, f.Value)
	}

	p.send(t, &Frame{Kind: KindWriteResponse, Seq: f.Seq, Status: uint8(dispatch.StatusSuccess)})
	res := waitResult(t, results)
	if !res.OK() {
		t.Errorf("result = %v, want success", res)
	}
	if n := l.Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
}

func TestOversizedFrameKeepsLinkInSync(t *testing.T) {
	l, p := newPipeLink(t, WithMaxFrameSize(64))

	results := make(chan dispatch.Result, 1)
	req := dispatch.WriteRequest{
		ClusterID:   0x0008,
		AttributeID: 0x0011,
		Ref:         schema.NullableScalar(schema.TypeUint8),
		Value:       value.Of(uint8(10)),
	}
	go func() {
		if err := l.WriteAttribute(context.Background(), 0x1122, 1, req, func(r dispatch.Result) { results <- r }); err != nil {
			t.Errorf("WriteAttribute: %v", err)
		}
	}()
	f := p.recv(t)

	if err := p.w.writeFrame(bytes.Repeat([]byte{0xAA}, 100)); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	p.send(t, &Frame{Kind: KindWriteResponse, Seq: f.Seq, Status: uint8(dispatch.StatusSuccess)})

	if res := waitResult(t, results); !res.OK() {
		t.Errorf("result = %v, want success", res)
	}
	if n := l.Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
}

func TestWriteAttributeTimedAndNull(t *testing.T) {
	l, p := newPipeLink(t)

	results := make(chan dispatch.Result, 1)
	req := dispatch.WriteRequest{
		ClusterID:    0xFFF1FC05,
		AttributeID:  0x0030,
		Value:        value.Null(),
		TimedTimeout: 1500 * time.Millisecond,
	}
	go l.WriteAttribute(context.Background(), 1, 1, req, func(r dispatch.Result) { results <- r })

	f := p.recv(t)
	if f.TimedMs != 1500 {
		t.Errorf("TimedMs = %d, want 1500", f.TimedMs)
	}
	if !f.Null || f.Value != nil {
		t.Errorf("Null = %v Value = %v, want null", f.Null, f.Value)
	}

	p.send(t, &Frame{Kind: KindWriteResponse, Seq: f.Seq, Status: uint8(dispatch.StatusNeedsTimedInteraction)})
	res := waitResult(t, results)
	if res.Status != dispatch.StatusNeedsTimedInteraction {
		t.Errorf("status = %v, want %v", res.Status, dispatch.StatusNeedsTimedInteraction)
	}
}

func TestWriteAttributeTimeout(t *testing.T) {
	l, p := newPipeLink(t, WithRequestTimeout(50*time.Millisecond))

	results := make(chan dispatch.Result, 1)
	go l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{ClusterID: 6, Value: value.Of(true)},
		func(r dispatch.Result) { results <- r })

	f := p.recv(t)
	res := waitResult(t, results)
	if res.Status != dispatch.StatusTimeout || !errors.Is(res.Err, ErrTimeout) {
		t.Errorf("result = %v, want timeout", res)
	}

	// A late answer is dropped.
	p.send(t, &Frame{Kind: KindWriteResponse, Seq: f.Seq})
	select {
	case res := <-results:
		t.Errorf("late response delivered: %v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWriteAttributeBusy(t *testing.T) {
	l, p := newPipeLink(t, WithMaxInFlight(1))

	results := make(chan dispatch.Result, 1)
	go l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{ClusterID: 6, Value: value.Of(true)},
		func(r dispatch.Result) { results <- r })
	first := p.recv(t)

	err := l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{ClusterID: 6, Value: value.Of(false)}, nil)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second write err = %v, want ErrBusy", err)
	}

	p.send(t, &Frame{Kind: KindWriteResponse, Seq: first.Seq})
	waitResult(t, results)

	done := make(chan error, 1)
	go func() {
		done <- l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{ClusterID: 6, Value: value.Of(false)}, nil)
	}()
	p.recv(t)
	if err := <-done; err != nil {
		t.Errorf("write after release: %v", err)
	}
}

func TestEventReport(t *testing.T) {
	l, p := newPipeLink(t)

	reports := make(chan event.Report, 1)
	l.OnEventReport(func(r event.Report) { reports <- r })

	p.send(t, &Frame{Kind: KindEventReport, Event: &event.Report{
		Node:     0x42,
		Endpoint: 1,
		Cluster:  0x0045,
		Event:    0,
		Number:   7,
		Priority: uint8(schema.PriorityInfo),
		Fields:   map[uint32]any{0: true},
	}})

	select {
	case r := <-reports:
		if r.Node != 0x42 || r.Cluster != 0x0045 || r.Number != 7 {
			t.Errorf("report = %+v", r)
		}
		if got, ok := r.Fields[0].(bool); !ok || !got {
			t.Errorf("field 0 = %v, want true", r.Fields[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event report not delivered")
	}
}

func TestCloseFailsPending(t *testing.T) {
	l, p := newPipeLink(t)

	results := make(chan dispatch.Result, 1)
	go l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{ClusterID: 6, Value: value.Of(true)},
		func(r dispatch.Result) { results <- r })
	p.recv(t)

	l.Close()
	res := waitResult(t, results)
	if !errors.Is(res.Err, ErrClosed) {
		t.Errorf("result err = %v, want ErrClosed", res.Err)
	}
	if err := l.WriteAttribute(context.Background(), 1, 1, dispatch.WriteRequest{}, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close = %v, want ErrClosed", err)
	}
}

func TestPeerDisconnect(t *testing.T) {
	l, p := newPipeLink(t)

	states := make(chan State, 1)
	l.OnStateChange(func(s State) { states <- s })
	p.conn.Close()

	select {
	case s := <-states:
		if s != StateDisconnected {
			t.Errorf("state = %v, want %v", s, StateDisconnected)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
}
