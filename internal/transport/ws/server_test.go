package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxeldisplay.ai/internal/persistence/displaydb"
	persistlog "voxeldisplay.ai/internal/persistence/log"
	"voxeldisplay.ai/internal/protocol"
	"voxeldisplay.ai/internal/sim/rotation"
)

type memAudit struct {
	mu      sync.Mutex
	entries []persistlog.AuditEntry
}

func (a *memAudit) WriteAudit(e persistlog.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) snapshot() []persistlog.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]persistlog.AuditEntry(nil), a.entries...)
}

func newTestServer(t *testing.T) (*Server, *displaydb.Store, *memAudit, string) {
	t.Helper()
	store, err := displaydb.Open(filepath.Join(t.TempDir(), "displays.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	audit := &memAudit{}
	srv := NewServer(store, audit, nil, Options{MaxQueue: 16})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return srv, store, audit, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string, binary bool) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "tester",
		Capabilities:    protocol.HelloCapabilities{BinaryFrames: binary},
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read WELCOME: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("type=%q want WELCOME", welcome.Type)
	}
	return conn, welcome
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readText(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("kind=%d want text", kind)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func TestServer_SetRotationBroadcasts(t *testing.T) {
	_, store, audit, url := newTestServer(t)

	jsonConn, welcome := dial(t, url, false)
	if len(welcome.Rotations) != rotation.NumStates || welcome.Rotations[0] != "X_0" || welcome.Rotations[11] != "Z_270" {
		t.Fatalf("rotations=%v", welcome.Rotations)
	}
	if len(welcome.Displays) != 0 {
		t.Fatalf("displays=%v want none", welcome.Displays)
	}
	binConn, _ := dial(t, url, true)

	send(t, jsonConn, `{"type":"SET_ROTATION","protocol_version":"1.0","req_id":"r1","pos":[1,2,3],"rotation":{"axis":"x","degrees":90}}`)

	m := readText(t, jsonConn)
	if m["type"] != protocol.TypeRotation || m["rotation"] != "X_90" || m["by"] != "tester" {
		t.Fatalf("ROTATION=%v", m)
	}

	_ = binConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, b, err := binConn.ReadMessage()
	if err != nil {
		t.Fatalf("binary read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("kind=%d want binary", kind)
	}
	pos, rot, err := protocol.DecodeRotationFrame(b)
	if err != nil || pos != [3]int{1, 2, 3} || rot != rotation.X90 {
		t.Fatalf("frame=%v %s %v", pos, rot, err)
	}

	got, ok, err := store.Get(context.Background(), [3]int{1, 2, 3})
	if err != nil || !ok || got != rotation.X90 {
		t.Fatalf("stored=%s,%v,%v", got, ok, err)
	}
	entries := audit.snapshot()
	if len(entries) != 1 || entries[0].From != nil || entries[0].To != rotation.X90 || entries[0].ReqID != "r1" {
		t.Fatalf("audit=%+v", entries)
	}

	_, late := dial(t, url, false)
	if len(late.Displays) != 1 || late.Displays[0].Rotation != rotation.X90 {
		t.Fatalf("late welcome displays=%+v", late.Displays)
	}
}

func TestServer_SetRotationErrors(t *testing.T) {
	_, _, audit, url := newTestServer(t)
	conn, _ := dial(t, url, false)

	cases := []struct {
		msg   string
		code  string
		value any
	}{
		{msg: `{"type":"SET_ROTATION","protocol_version":"1.0","req_id":"a","pos":[0,0,0],"rotation":{"axis":"x","degrees":45}}`, code: protocol.ErrInvalidDegrees, value: float64(45)},
		{msg: `{"type":"SET_ROTATION","protocol_version":"1.0","req_id":"b","pos":[0,0,0],"rotation":{"degrees":90}}`, code: protocol.ErrMissingAxis, value: nil},
		{msg: `{"type":"SET_ROTATION","protocol_version":"1.0","req_id":"c","pos":[0,0,0],"rotation":"bogus"}`, code: protocol.ErrUnknownRotationName, value: "BOGUS"},
		{msg: `{"type":"SET_ROTATION","protocol_version":"1.0","req_id":"d","pos":[0,0,0],"rotation":{"axis":"w","degrees":0}}`, code: protocol.ErrInvalidRotation, value: "W_0"},
		{msg: `{"type":"SET_ROTATION","protocol_version":"1.0","pos":[0,0],"rotation":"X_0"}`, code: protocol.ErrProtoBadRequest, value: nil},
	}
	for _, c := range cases {
		send(t, conn, c.msg)
		m := readText(t, conn)
		if m["type"] != protocol.TypeError || m["code"] != c.code {
			t.Fatalf("%s: got %v want code %s", c.msg, m, c.code)
		}
		if m["value"] != c.value {
			t.Fatalf("%s: value=%#v want %#v", c.msg, m["value"], c.value)
		}
	}
	if n := len(audit.snapshot()); n != 0 {
		t.Fatalf("audit entries=%d want 0", n)
	}
}

func TestServer_RejectsBadHello(t *testing.T) {
	srv, _, _, url := newTestServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	send(t, conn, `{"type":"HELLO","protocol_version":"0.1"}`)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err=%v want policy violation close", err)
	}
	if n := srv.Clients(); n != 0 {
		t.Fatalf("clients=%d want 0", n)
	}
}
