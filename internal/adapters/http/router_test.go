package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/lobby/internal/adapters/capture"
	"github.com/dkeye/lobby/internal/app"
	"github.com/dkeye/lobby/internal/app/orch"
	"github.com/dkeye/lobby/internal/config"
	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/testutil"
)

type staticDevices []capture.DeviceInfo

func (d staticDevices) Enumerate() []capture.DeviceInfo { return d }

func newTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	o := &orch.Orchestrator{
		Registry:    app.NewRegistry(),
		Rooms:       app.NewRoomManager(4),
		Media:       &testutil.Media{},
		DefaultRoom: "lobby",
	}
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		PingPeriod: time.Minute,
		Secret:     "test-secret",
	}
	devices := staticDevices{{DeviceID: "cam0", Kind: "videoinput", Label: "test"}}
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, o, devices))
	t.Cleanup(func() {
		srv.Close()
		o.Shutdown()
	})
	return srv, o
}

func getJSON(t *testing.T, url, token string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "ct", Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRESTEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := getJSON(t, srv.URL+"/api/rooms", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["rooms"])

	code, body = getJSON(t, srv.URL+"/api/rooms/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "room_not_found", body["error"])

	code, body = getJSON(t, srv.URL+"/api/devices", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["devices"], 1)

	code, body = getJSON(t, srv.URL+"/api/session", "tok")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no_session", body["error"])
}

func TestClientTokenCookieIsIssued(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "ct" {
			found = true
			assert.NotEmpty(t, c.Value)
		}
	}
	assert.True(t, found)
}

func readUntil(t *testing.T, ws *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		mt, data, err := ws.ReadMessage()
		require.NoError(t, err)
		if mt != websocket.TextMessage {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		if match(m) {
			return m
		}
	}
}

func TestLobbyWebsocketFlow(t *testing.T) {
	srv, o := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/lobby"
	header := http.Header{}
	header.Add("Cookie", "ct=tok-1")

	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	first := readUntil(t, ws, func(m map[string]any) bool { return m["type"] == "state" })
	assert.Equal(t, "previewing", first["session"].(map[string]any)["phase"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ready"}`)))
	readUntil(t, ws, func(m map[string]any) bool {
		return m["type"] == "state" && m["session"].(map[string]any)["has_video"] == true
	})

	code, body := getJSON(t, srv.URL+"/api/session", "tok-1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["session"].(map[string]any)["has_audio"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","room":"standup"}`)))
	joined := readUntil(t, ws, func(m map[string]any) bool { return m["type"] == "joined" })
	assert.Equal(t, "standup", joined["room"])

	code, body = getJSON(t, srv.URL+"/api/rooms/standup", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["members"], 1)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool {
		_, _, ok := o.State(core.SessionID("tok-1"))
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	room, ok := o.Rooms.Get("standup")
	require.True(t, ok)
	assert.Eventually(t, func() bool { return room.MemberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
