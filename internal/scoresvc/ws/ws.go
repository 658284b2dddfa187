package ws

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jthom/scorekeeper/internal/comm"
	"github.com/jthom/scorekeeper/internal/scoresvc/clock"
)

// Hub keeps the connected websocket clients and pushes the outbound
// notifications (timer expiry, record changes) to all of them.
type Hub struct {
	connMap sync.Map // socketId -> *websocket.Conn
	writeMu sync.Mutex

	// OnVisibility is invoked when a client reports a page visibility
	// change for a game. Wired to the clock manager in main.
	OnVisibility func(gameID string, hidden bool)
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) StoreConnection(socketId string, conn *websocket.Conn) {
	h.connMap.Store(socketId, conn)
}

func (h *Hub) RemoveConnection(socketId string) {
	if conn, ok := h.connMap.LoadAndDelete(socketId); ok {
		conn.(*websocket.Conn).Close()
	}
}

// SocketMessage dispatches an inbound frame from a web client.
func (h *Hub) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case comm.TypeVisibility:
		h.handleVisibility(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (h *Hub) handleVisibility(socketId string, msg *comm.WSMessage) {
	var payload comm.VisibilityPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed visibility payload from socket %s: %v", socketId, err)
		return
	}
	if payload.GameID == "" {
		log.Errorf("visibility payload from socket %s missing game id", socketId)
		return
	}
	if h.OnVisibility != nil {
		h.OnVisibility(payload.GameID, payload.Hidden)
	}
}

// SendError reports a bad inbound frame back to one client. Writes go
// through writeMu so an error reply cannot interleave with a broadcast
// on the same connection.
func (h *Hub) SendError(socketId string, errorMsg string) {
	value, ok := h.connMap.Load(socketId)
	if !ok {
		return
	}
	frame, err := json.Marshal(comm.WSMessage{Type: comm.TypeError, Data: json.RawMessage(strconv.Quote(errorMsg))})
	if err != nil {
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	conn := value.(*websocket.Conn)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Errorf("failed to send error message to socket %s: %v", socketId, err)
	}
}

// BroadcastExpiry pushes the timer expiry notification to every client.
func (h *Hub) BroadcastExpiry(res clock.ExpiryResult) {
	h.broadcast(comm.TypeTimeExpired, res)
}

// BroadcastGameChanged tells clients to re-fetch a mutated record.
func (h *Hub) BroadcastGameChanged(gameID string, deleted bool) {
	h.broadcast(comm.TypeGameChanged, comm.GameChangedPayload{GameID: gameID, Deleted: deleted})
}

func (h *Hub) broadcast(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal %s payload: %v", msgType, err)
		return
	}
	frame, err := json.Marshal(comm.WSMessage{Type: msgType, Data: data})
	if err != nil {
		log.Errorf("failed to marshal %s frame: %v", msgType, err)
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.connMap.Range(func(key, value interface{}) bool {
		conn := value.(*websocket.Conn)
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Errorf("failed to write to socket %s, dropping connection: %v", key, err)
			conn.Close()
			h.connMap.Delete(key)
		}
		return true
	})
}
