package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jthom/scorekeeper/internal/comm"
	"github.com/jthom/scorekeeper/internal/scoresvc/clock"
)

// dialHub wires a real client connection into the hub through a test
// server so broadcasts exercise the actual websocket write path.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.StoreConnection("test-socket", conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was never registered with the hub")
	}
	return conn
}

func TestHub_BroadcastExpiry(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.BroadcastExpiry(clock.ExpiryResult{
		GameID:       "g1",
		HasWinner:    true,
		PlayerScores: []int{10, 5},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame comm.WSMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != comm.TypeTimeExpired {
		t.Errorf("frame type = %s, want %s", frame.Type, comm.TypeTimeExpired)
	}

	var payload clock.ExpiryResult
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !payload.HasWinner || payload.GameID != "g1" {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.PlayerScores) != 2 || payload.PlayerScores[0] != 10 || payload.PlayerScores[1] != 5 {
		t.Errorf("playerScores = %v, want [10 5]", payload.PlayerScores)
	}
}

func TestHub_VisibilityDispatch(t *testing.T) {
	hub := NewHub()
	var gotGame string
	var gotHidden bool
	hub.OnVisibility = func(gameID string, hidden bool) {
		gotGame, gotHidden = gameID, hidden
	}

	data, _ := json.Marshal(comm.VisibilityPayload{GameID: "g1", Hidden: true})
	hub.SocketMessage("sock", &comm.WSMessage{Type: comm.TypeVisibility, Data: data})

	if gotGame != "g1" || !gotHidden {
		t.Errorf("visibility dispatch = %s,%v, want g1,true", gotGame, gotHidden)
	}

	// malformed payload is logged and dropped, not fatal
	hub.SocketMessage("sock", &comm.WSMessage{Type: comm.TypeVisibility, Data: json.RawMessage("{bad")})
	// missing game id is ignored
	data, _ = json.Marshal(comm.VisibilityPayload{Hidden: false})
	gotGame = ""
	hub.SocketMessage("sock", &comm.WSMessage{Type: comm.TypeVisibility, Data: data})
	if gotGame != "" {
		t.Error("payload without game id must not dispatch")
	}
}

func TestHub_SendError(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	// error replies and broadcasts share one writer lock, so racing them
	// must never corrupt the stream
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			hub.BroadcastExpiry(clock.ExpiryResult{GameID: "g1"})
		}
	}()
	hub.SendError("test-socket", "invalid message format")
	<-done

	hub.SendError("no-such-socket", "ignored") // unknown socket is a no-op

	sawError := false
	for i := 0; i < 11; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		var frame comm.WSMessage
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unmarshal frame %d: %v", i, err)
		}
		if frame.Type != comm.TypeError {
			continue
		}
		sawError = true
		var msg string
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			t.Fatalf("unmarshal error payload: %v", err)
		}
		if msg != "invalid message format" {
			t.Errorf("error payload = %q, want invalid message format", msg)
		}
	}
	if !sawError {
		t.Error("error frame never delivered")
	}
}

func TestHub_RemoveConnection(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	hub.RemoveConnection("test-socket")

	// broadcast after removal reaches nobody and must not panic
	hub.BroadcastExpiry(clock.ExpiryResult{GameID: "g1"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("removed connection should not receive broadcasts")
	}
}
