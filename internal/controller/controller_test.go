package controller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/event"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/store"
	"matter-go-home/internal/transport"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type linkWrite struct {
	node     uint64
	endpoint uint16
	req      dispatch.WriteRequest
	cb       dispatch.Callback
}

// fakeLink records writes and lets tests inject reports and state changes.
type fakeLink struct {
	mu       sync.Mutex
	writes   []linkWrite
	err      error
	onReport func(event.Report)
	onState  func(transport.State)
}

func (l *fakeLink) WriteAttribute(_ context.Context, node uint64, endpoint uint16, req dispatch.WriteRequest, cb dispatch.Callback) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.writes = append(l.writes, linkWrite{node, endpoint, req, cb})
	return nil
}

func (l *fakeLink) OnEventReport(h func(event.Report))     { l.onReport = h }
func (l *fakeLink) OnStateChange(h func(transport.State)) { l.onState = h }
func (l *fakeLink) Close() error                          { return nil }

func (l *fakeLink) last(t *testing.T) linkWrite {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.writes) == 0 {
		t.Fatal("no write reached the link")
	}
	return l.writes[len(l.writes)-1]
}

func (l *fakeLink) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.writes)
}

func newTestController(t *testing.T, cfg Config) (*Controller, *fakeLink, *store.BoltStore) {
	t.Helper()
	logger := newTestLogger()
	reg := schema.NewRegistry(logger)
	for _, c := range clusters.Standard() {
		reg.Register(c)
	}
	writes, err := NewWriteRegistry(reg)
	if err != nil {
		t.Fatalf("NewWriteRegistry: %v", err)
	}
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	link := &fakeLink{}
	c := New(link, st, reg, writes, NewEventBus(logger), cfg, LinkConfig{Port: "/dev/null"}, logger)
	return c, link, st
}

func TestParseNodeID(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"66", 66, false},
		{"0x42", 0x42, false},
		{"0X00000000DEADBEEF", 0xDEADBEEF, false},
		{"00000000DEADBEEF", 0xDEADBEEF, false},
		{"00:00:00:00:DE:AD:BE:EF", 0xDEADBEEF, false},
		{"", 0, true},
		{"0xZZ", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseNodeID(%q) = 0x%X, want 0x%X", tt.input, got, tt.want)
			}
		})
	}
	if got := FormatNodeID(0xDEADBEEF); got != "00000000DEADBEEF" {
		t.Errorf("FormatNodeID = %q", got)
	}
}

func TestNewWriteRegistry(t *testing.T) {
	c, _, _ := newTestController(t, Config{})

	d, err := c.Writes().Lookup("OnOff", "OnTime")
	if err != nil {
		t.Fatal(err)
	}
	if d.ClusterID != 0x0006 || d.AttributeID != 0x4001 {
		t.Errorf("ids = 0x%04X/0x%04X", d.ClusterID, d.AttributeID)
	}
	d, err = c.Writes().Lookup("unitTesting", "timedWriteBoolean")
	if err != nil {
		t.Fatal(err)
	}
	if d.TimedTimeout != 10*time.Second {
		t.Errorf("TimedTimeout = %v, want 10s", d.TimedTimeout)
	}
	ws, err := c.Writes().Writable("booleanState")
	if err != nil || len(ws) != 0 {
		t.Errorf("Writable(booleanState) = %d, %v; want 0, nil", len(ws), err)
	}
}

func TestWriteAttributeSchemaPath(t *testing.T) {
	c, link, _ := newTestController(t, Config{})

	var results []WriteResult
	c.Events().On(EventWriteResult, func(e Event) { results = append(results, e.Data.(WriteResult)) })

	var got dispatch.Result
	called := 0
	id, err := c.WriteAttribute(context.Background(), 0x42, 0, "basicInformation", "nodeLabel",
		dispatch.Single("kitchen"), func(r dispatch.Result) { called++; got = r })
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty request id")
	}

	w := link.last(t)
	if w.node != 0x42 || w.endpoint != 0 {
		t.Errorf("addressed %d/%d, want 66/0", w.node, w.endpoint)
	}
	if w.req.ClusterID != 0x0028 || w.req.AttributeID != 0x0005 {
		t.Errorf("req ids = 0x%04X/0x%04X", w.req.ClusterID, w.req.AttributeID)
	}
	if s, ok := w.req.Value.Data.(string); !ok || s != "kitchen" {
		t.Errorf("value = %v", w.req.Value)
	}
	if called != 0 || len(results) != 0 {
		t.Fatal("completion before the device answered")
	}

	w.cb(dispatch.Result{Status: dispatch.StatusSuccess})
	if called != 1 || !got.OK() {
		t.Errorf("cb called %d times with %v", called, got)
	}
	if len(results) != 1 {
		t.Fatalf("write_result events = %d, want 1", len(results))
	}
	if r := results[0]; r.RequestID != id || !r.OK() || r.Cluster != "basicInformation" || r.Attribute != "nodeLabel" {
		t.Errorf("write_result = %+v", r)
	}
}

func TestWriteAttributeTypedBinding(t *testing.T) {
	c, link, _ := newTestController(t, Config{})

	if _, err := c.WriteAttribute(context.Background(), 1, 1, "onOff", "onTime", dispatch.Single(300), nil); err != nil {
		t.Fatal(err)
	}
	w := link.last(t)
	if v, ok := w.req.Value.Data.(uint16); !ok || v != 300 {
		t.Errorf("value = %v (%T), want uint16 300", w.req.Value.Data, w.req.Value.Data)
	}
	if w.req.Ref != schema.Scalar(schema.TypeUint16) {
		t.Errorf("ref = %v", w.req.Ref.Describe())
	}
	// nil callback: the result is still published.
	w.cb(dispatch.Result{Status: dispatch.StatusConstraintError})

	if _, err := c.WriteAttribute(context.Background(), 1, 1, "levelControl", "onLevel", dispatch.Single(nil), nil); err != nil {
		t.Fatal(err)
	}
	if w := link.last(t); !w.req.Value.IsNull() || w.req.AttributeID != 0x0011 {
		t.Errorf("onLevel write = %+v", w.req)
	}
}

func TestWriteAttributeTimed(t *testing.T) {
	c, link, _ := newTestController(t, Config{})

	if _, err := c.WriteAttribute(context.Background(), 1, 1, "unitTesting", "timedWriteBoolean", dispatch.Single(true), nil); err != nil {
		t.Fatal(err)
	}
	if got := link.last(t).req.TimedTimeout; got != 10*time.Second {
		t.Errorf("TimedTimeout = %v, want 10s", got)
	}

	if _, err := c.WriteAttribute(context.Background(), 1, 1, "unitTesting", "timedWriteBoolean", dispatch.Single(false), nil,
		dispatch.WithTimedTimeout(2*time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := link.last(t).req.TimedTimeout; got != 2*time.Second {
		t.Errorf("TimedTimeout = %v, want 2s", got)
	}
}

func TestWriteAttributeErrors(t *testing.T) {
	c, link, _ := newTestController(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name      string
		cluster   string
		attribute string
		args      dispatch.Args
		want      error
	}{
		{"unknown cluster", "fanControl", "fanMode", dispatch.Single(1), dispatch.ErrUnknownCluster},
		{"unknown attribute", "onOff", "brightness", dispatch.Single(1), dispatch.ErrUnknownAttribute},
		{"read-only", "onOff", "onOff", dispatch.Single(true), dispatch.ErrNotWritable},
		{"missing arg", "onOff", "onTime", dispatch.Args{}, dispatch.ErrMissingArgument},
		{"bad type", "onOff", "onTime", dispatch.Single("ten"), dispatch.ErrArgumentType},
		{"out of range", "onOff", "onTime", dispatch.Single(70000), dispatch.ErrContract},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.WriteAttribute(ctx, 1, 1, tt.cluster, tt.attribute, tt.args, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if n := link.count(); n != 0 {
		t.Errorf("link saw %d writes, want 0", n)
	}

	link.err = transport.ErrBusy
	if _, err := c.WriteAttribute(ctx, 1, 1, "onOff", "onTime", dispatch.Single(1), nil); !errors.Is(err, transport.ErrBusy) {
		t.Errorf("link error = %v, want ErrBusy", err)
	}
}

func TestWriteAttributeSync(t *testing.T) {
	c, link, _ := newTestController(t, Config{})

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for link.count() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if link.count() > 0 {
			link.last(t).cb(dispatch.Result{Status: dispatch.StatusUnsupportedWrite})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	res, err := c.WriteAttributeSync(ctx, 1, 1, "identify", "identifyTime", dispatch.Single(5))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != dispatch.StatusUnsupportedWrite {
		t.Errorf("status = %v, want %v", res.Status, dispatch.StatusUnsupportedWrite)
	}
}

func stateChangeReport(node uint64, number uint64, state bool) event.Report {
	return event.Report{
		Node:        node,
		Endpoint:    1,
		Cluster:     0x0045,
		Event:       0,
		Number:      number,
		Priority:    uint8(schema.PriorityInfo),
		TimestampUs: 1700000000000000 + int64(number),
		Fields:      map[uint32]any{0: state},
	}
}

func TestHandleReport(t *testing.T) {
	c, link, st := newTestController(t, Config{})

	var got []MatterEvent
	c.Events().On(EventMatterEvent, func(e Event) { got = append(got, e.Data.(MatterEvent)) })

	link.onReport(stateChangeReport(0x42, 1, true))

	if len(got) != 1 {
		t.Fatalf("matter events = %d, want 1", len(got))
	}
	if got[0].Seq != 1 {
		t.Errorf("seq = %d, want 1", got[0].Seq)
	}
	want := "BooleanStateStateChangeEvent {\n\tstateValue: true\n}\n"
	if r := got[0].Record.Render(); r != want {
		t.Errorf("Render = %q, want %q", r, want)
	}

	node, err := st.GetNode(0x42)
	if err != nil {
		t.Fatal(err)
	}
	if node.EventCount != 1 || node.LastEventNumber != 1 || !node.HasEndpoint(1) {
		t.Errorf("node = %+v", node)
	}

	events, err := c.Events(EventQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !events[0].Record.Equal(got[0].Record) {
		t.Errorf("journal = %v", events)
	}
}

func TestHandleReportRejectsUnknown(t *testing.T) {
	c, link, st := newTestController(t, Config{})

	var count atomic.Int32
	c.Events().On(EventMatterEvent, func(Event) { count.Add(1) })

	rep := stateChangeReport(1, 1, true)
	rep.Cluster = 0x7777
	link.onReport(rep)

	rep = stateChangeReport(1, 2, true)
	rep.Fields = map[uint32]any{0: "yes"}
	link.onReport(rep)

	if count.Load() != 0 {
		t.Errorf("published %d events, want 0", count.Load())
	}
	if _, err := st.GetNode(1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("node created for rejected reports: %v", err)
	}
}

func TestHandleReportFillsTimestamp(t *testing.T) {
	c, link, _ := newTestController(t, Config{})
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	var rec *event.Record
	c.Events().On(EventMatterEvent, func(e Event) { rec = e.Data.(MatterEvent).Record })

	rep := stateChangeReport(1, 1, false)
	rep.TimestampUs = 0
	link.onReport(rep)

	if rec == nil {
		t.Fatal("no event")
	}
	if !rec.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, fixed)
	}
}

func TestStaleEventsDropped(t *testing.T) {
	c, link, _ := newTestController(t, Config{DropStaleEvents: true})

	var count atomic.Int32
	c.Events().On(EventMatterEvent, func(Event) { count.Add(1) })

	link.onReport(stateChangeReport(1, 5, true))
	link.onReport(stateChangeReport(1, 5, true))
	link.onReport(stateChangeReport(1, 3, false))
	link.onReport(stateChangeReport(1, 6, false))
	// Numbers are tracked per node.
	link.onReport(stateChangeReport(2, 1, false))

	if got := count.Load(); got != 3 {
		t.Errorf("published %d events, want 3", got)
	}
}

func TestEventsQuery(t *testing.T) {
	c, link, _ := newTestController(t, Config{})
	for i := uint64(1); i <= 6; i++ {
		link.onReport(stateChangeReport(100+i%2, i, i%2 == 0))
	}

	tests := []struct {
		name string
		q    EventQuery
		want []uint64
	}{
		{"all", EventQuery{}, []uint64{1, 2, 3, 4, 5, 6}},
		{"limit", EventQuery{Limit: 2}, []uint64{1, 2}},
		{"newest", EventQuery{Newest: true, Limit: 2}, []uint64{6, 5}},
		{"after", EventQuery{After: 4}, []uint64{5, 6}},
		{"node", EventQuery{Node: 100}, []uint64{2, 4, 6}},
		{"filter", EventQuery{Filter: "Fields.stateValue == false"}, []uint64{1, 3, 5}},
		{"filter and limit", EventQuery{Filter: "Node == 101", Newest: true, Limit: 1}, []uint64{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Events(tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Seq != tt.want[i] {
					t.Errorf("event[%d].Seq = %d, want %d", i, e.Seq, tt.want[i])
				}
			}
		})
	}

	if _, err := c.Events(EventQuery{Filter: "Node =="}); err == nil {
		t.Error("bad filter accepted")
	}
}

func TestJournalLimit(t *testing.T) {
	c, link, st := newTestController(t, Config{JournalLimit: 10})
	for i := uint64(1); i <= pruneEvery; i++ {
		link.onReport(stateChangeReport(1, i, true))
	}
	n := 0
	st.ScanEvents(store.JournalQuery{}, func(store.JournalEntry) bool { n++; return true })
	if n != 10 {
		t.Errorf("journal size = %d, want 10", n)
	}
	events, _ := c.Events(EventQuery{Newest: true, Limit: 1})
	if len(events) != 1 || events[0].Seq != pruneEvery {
		t.Errorf("newest = %v", events)
	}
}

func TestLinkState(t *testing.T) {
	c, link, _ := newTestController(t, Config{})
	if c.LinkState() != transport.StateConnected {
		t.Errorf("initial state = %v", c.LinkState())
	}

	var got transport.State
	c.Events().On(EventLinkState, func(e Event) { got = e.Data.(transport.State) })
	link.onState(transport.StateDisconnected)

	if got != transport.StateDisconnected || c.LinkState() != transport.StateDisconnected {
		t.Errorf("state = %v / %v, want disconnected", got, c.LinkState())
	}
	if c.Info()["link_state"] != transport.StateDisconnected {
		t.Errorf("Info = %v", c.Info())
	}
}

func TestNodeLabelAndForget(t *testing.T) {
	c, link, _ := newTestController(t, Config{})
	link.onReport(stateChangeReport(7, 1, true))

	n, err := c.SetNodeLabel(7, "front door")
	if err != nil {
		t.Fatal(err)
	}
	if n.Label != "front door" || n.EventCount != 1 {
		t.Errorf("node = %+v", n)
	}
	if _, err := c.SetNodeLabel(8, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("label unknown node err = %v", err)
	}

	if err := c.ForgetNode(7); err != nil {
		t.Fatal(err)
	}
	nodes, _ := c.Nodes()
	if len(nodes) != 0 {
		t.Errorf("nodes = %d, want 0", len(nodes))
	}
	if err := c.ForgetNode(7); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("forget twice err = %v", err)
	}
}
