package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_StreamsState(t *testing.T) {
	s := newTestServer(t)
	id := s.create(t).ID

	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/widgets/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, MsgTypeConnected, readMessage(t, ws).Type)

	msg := readMessage(t, ws)
	require.Equal(t, MsgTypeState, msg.Type)
	var state models.WidgetState
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Nil(t, state.PendingFile)

	rec := s.offer(id, "passport.png", "image/png", pngMagic)
	require.Equal(t, http.StatusOK, rec.Code)

	msg = readMessage(t, ws)
	require.Equal(t, MsgTypeState, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	require.NotNil(t, state.PendingFile)
	assert.Equal(t, "passport.png", state.PendingFile.Name)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readMessage(t, ws).Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "bogus"}))
	assert.Equal(t, MsgTypeError, readMessage(t, ws).Type)

	require.NoError(t, s.sessions.Delete(id))
	assert.Equal(t, MsgTypeClosed, readMessage(t, ws).Type)
}

func TestWebSocketHandler_UnknownWidget(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/widgets/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
