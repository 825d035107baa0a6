package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/controller/controllertest"
	"matter-go-home/internal/event"
	"matter-go-home/internal/filter"
	"matter-go-home/internal/schema/clusters"
)

func newTestHub() *WSHub {
	return NewWSHub(controllertest.Logger())
}

func testEvent(typ string) controller.Event {
	return controller.Event{Type: typ, Data: map[string]string{"k": "v"}}
}

func matterEventFor(node uint64) controller.Event {
	rec := event.New(&clusters.BooleanState, &clusters.BooleanState.Events[0])
	rec.Node = node
	return controller.Event{Type: controller.EventMatterEvent, Data: controller.MatterEvent{Seq: 1, Record: rec}}
}

func TestWSHubRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	client := &wsClient{send: make(chan []byte, 16)}
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)
	if got := hub.Clients(); got != 1 {
		t.Errorf("after register: count = %d, want 1", got)
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	if got := hub.Clients(); got != 0 {
		t.Errorf("after unregister: count = %d, want 0", got)
	}
}

func TestWSHubBroadcast(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	c1 := &wsClient{send: make(chan []byte, 16)}
	c2 := &wsClient{send: make(chan []byte, 16)}

	hub.register <- c1
	hub.register <- c2
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(testEvent(controller.EventLinkState))
	time.Sleep(10 * time.Millisecond)

	for name, c := range map[string]*wsClient{"c1": c1, "c2": c2} {
		select {
		case msg := <-c.send:
			var ev struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &ev); err != nil || ev.Type != controller.EventLinkState {
				t.Errorf("%s received %s (err %v)", name, msg, err)
			}
		default:
			t.Errorf("%s did not receive broadcast", name)
		}
	}
}

func TestWSClientWants(t *testing.T) {
	tests := []struct {
		name   string
		client wsClient
		ev     controller.Event
		want   bool
	}{
		{"no restrictions", wsClient{}, testEvent(controller.EventWriteResult), true},
		{"type allowed", wsClient{types: map[string]bool{"write_result": true}}, testEvent(controller.EventWriteResult), true},
		{"type excluded", wsClient{types: map[string]bool{"matter_event": true}}, testEvent(controller.EventWriteResult), false},
		{"filter match", wsClient{filter: filter.MustCompile("Node == 5")}, matterEventFor(5), true},
		{"filter mismatch", wsClient{filter: filter.MustCompile("Node == 5")}, matterEventFor(6), false},
		{"filter ignores other types", wsClient{filter: filter.MustCompile("Node == 5")}, testEvent(controller.EventLinkState), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.wants(tt.ev); got != tt.want {
				t.Errorf("wants() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWSHubSlowClientEviction(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	slow := &wsClient{send: make(chan []byte, 1)}
	fast := &wsClient{send: make(chan []byte, 64)}

	hub.register <- slow
	hub.register <- fast
	time.Sleep(10 * time.Millisecond)

	// Fill slow client's buffer
	hub.Broadcast(testEvent("a"))
	time.Sleep(10 * time.Millisecond)

	// Second message should evict the slow client
	hub.Broadcast(testEvent("b"))
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, slowPresent := hub.clients[slow]
	_, fastPresent := hub.clients[fast]
	hub.mu.RUnlock()

	if slowPresent {
		t.Error("slow client should have been evicted")
	}
	if !fastPresent {
		t.Error("fast client should still be present")
	}
}

func TestWSHubBroadcastDropsWhenFull(t *testing.T) {
	hub := newTestHub()
	defer hub.Stop()

	// Not running, so nothing drains the queue.
	for i := 0; i < 256; i++ {
		hub.Broadcast(testEvent("fill"))
	}

	done := make(chan struct{})
	go func() {
		hub.Broadcast(testEvent("overflow"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("Broadcast blocked when channel is full")
	}
}

func TestWSHubStopIdempotent(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	hub.Stop()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Stop() panicked: %v", r)
		}
	}()
	hub.Stop()
}

func TestWSHubStopClosesClients(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	client := &wsClient{send: make(chan []byte, 16)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	if _, ok := <-client.send; ok {
		t.Error("client.send should be closed after hub stop")
	}
}

func TestWSHubUnregisterNonExistentClient(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Stop()

	unknown := &wsClient{send: make(chan []byte, 16)}
	hub.unregister <- unknown
	time.Sleep(10 * time.Millisecond)

	select {
	case unknown.send <- []byte("test"):
	default:
		t.Error("channel should still be open for non-registered client")
	}
}

func TestWSStreamFiltersEvents(t *testing.T) {
	srv, _, link := setupTestServer(t, "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?types=matter_event&filter=Node%20%3D%3D%2067"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the hub to register the client.
	deadline := time.Now().Add(time.Second)
	for srv.wsHub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	link.Report(controllertest.StateChange(66, 1, true))
	link.Report(controllertest.StateChange(67, 1, false))

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Type string `json:"type"`
		Data struct {
			Seq   uint64 `json:"seq"`
			Event struct {
				Node    uint64         `json:"node"`
				Cluster string         `json:"cluster"`
				Event   string         `json:"event"`
				Fields  map[string]any `json:"fields"`
			} `json:"event"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if got.Type != controller.EventMatterEvent || got.Data.Event.Node != 67 {
		t.Fatalf("first message = %s, want matter_event from node 67", msg)
	}
	if got.Data.Event.Cluster != "BooleanState" || got.Data.Event.Event != "StateChange" {
		t.Errorf("event = %s.%s, want BooleanState.StateChange", got.Data.Event.Cluster, got.Data.Event.Event)
	}
	if got.Data.Event.Fields["stateValue"] != false {
		t.Errorf("fields = %v, want stateValue false", got.Data.Event.Fields)
	}
}

func TestWSBadFilter(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")

	w := doRequest(t, srv, "GET", "/ws?filter=Node%20%3D%3D", "", "")
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func dialWS(t *testing.T, ctx context.Context, srv *Server, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	deadline := time.Now().Add(time.Second)
	for srv.wsHub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readWS(t *testing.T, ctx context.Context, conn *websocket.Conn) wsMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestWSSubscribeChangesFilter(t *testing.T) {
	srv, _, link := setupTestServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv, "?types=matter_event&filter=Node%20%3D%3D%2067")

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"types":["matter_event"],"filter":"Node == 66"}`)); err != nil {
		t.Fatal(err)
	}
	if msg := readWS(t, ctx, conn); msg.Type != wsSubscribed {
		t.Fatalf("reply type = %q, want %q (%s)", msg.Type, wsSubscribed, msg.Data)
	}

	link.Report(controllertest.StateChange(67, 1, true))
	link.Report(controllertest.StateChange(66, 1, true))

	msg := readWS(t, ctx, conn)
	var me struct {
		Event struct {
			Node uint64 `json:"node"`
		} `json:"event"`
	}
	if err := json.Unmarshal(msg.Data, &me); err != nil {
		t.Fatal(err)
	}
	if msg.Type != controller.EventMatterEvent || me.Event.Node != 66 {
		t.Errorf("got %s from node %d, want matter_event from node 66", msg.Type, me.Event.Node)
	}
}

func TestWSSubscribeErrors(t *testing.T) {
	srv, _, _ := setupTestServer(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv, "")

	for _, body := range []string{`not json`, `{"filter":"Node =="}`} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(body)); err != nil {
			t.Fatal(err)
		}
		if msg := readWS(t, ctx, conn); msg.Type != wsError {
			t.Errorf("%s: reply type = %q, want %q", body, msg.Type, wsError)
		}
	}
}

func TestTypeSet(t *testing.T) {
	if got := typeSet([]string{" ", ""}); got != nil {
		t.Errorf("blank names = %v, want nil", got)
	}
	got := typeSet([]string{"matter_event", " write_result "})
	if len(got) != 2 || !got["write_result"] {
		t.Errorf("typeSet = %v", got)
	}
}
