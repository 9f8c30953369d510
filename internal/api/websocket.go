package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// WebSocket message types for the state stream
const (
	// Client -> Server messages
	MsgTypeStateGet = "state:get"
	MsgTypePing     = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeState     = "state"
	MsgTypeClosed    = "closed"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for every websocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams widget state to connected browsers
type WebSocketHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewWebSocketHandler creates a new state stream handler
func NewWebSocketHandler(sessions SessionManager, logger *log.Logger) StateStreamHandler {
	return &WebSocketHandler{
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// wsConn serializes writes from the reader and the state pump.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) send(msg WSMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	return w.ws.WriteJSON(msg)
}

// HandleStateStream upgrades the connection and pushes the widget state
// after every transition until the client leaves or the session ends.
func (wsh *WebSocketHandler) HandleStateStream(c echo.Context) error {
	id := c.Param("id")
	s, err := wsh.sessions.Get(id)
	if err != nil {
		return mapWidgetError(err, id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	conn := &wsConn{ws: ws}
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	wsh.logger.Debugf("[WebSocket %s] client connected", shortID(id))

	conn.send(WSMessage{Type: MsgTypeConnected, ID: id})
	conn.send(WSMessage{Type: MsgTypeState, ID: id, Payload: mustJSON(s.Controller.State())})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsh.logger.Warnf("[WebSocket %s] connection error: %v", shortID(id), err)
				}
				return
			}

			// an open stream counts as activity for idle cleanup
			wsh.sessions.Touch(id)

			switch msg.Type {
			case MsgTypePing:
				conn.send(WSMessage{Type: MsgTypePong})
			case MsgTypeStateGet:
				conn.send(WSMessage{Type: MsgTypeState, ID: id, Payload: mustJSON(s.Controller.State())})
			default:
				conn.send(WSMessage{
					Type:    MsgTypeError,
					Payload: mustJSON(WSErrorResponse{Message: "Unknown message type: " + msg.Type, Code: "INVALID_TYPE"}),
				})
			}
		}
	}()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				conn.send(WSMessage{Type: MsgTypeClosed, ID: id})
				return nil
			}
			if err := conn.send(WSMessage{Type: MsgTypeState, ID: id, Payload: mustJSON(state)}); err != nil {
				return nil
			}
		case <-done:
			wsh.logger.Debugf("[WebSocket %s] client disconnected", shortID(id))
			return nil
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
