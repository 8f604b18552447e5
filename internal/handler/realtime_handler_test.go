package handler_test

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/handler"
	"github.com/noah-isme/casedesk-api/internal/realtime"
)

const realtimeSecret = "realtime-handler-secret"

type wireEnvelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
}

func startRealtimeServer(t *testing.T) (*realtime.Gateway, string) {
	t.Helper()

	registry := realtime.NewRegistry(zerolog.Nop())
	gateway := realtime.NewGateway(auth.NewJWTVerifier(realtimeSecret), registry, realtime.Options{
		SendBuffer:   8,
		PingInterval: time.Minute,
	}, zerolog.Nop())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.NewRealtimeHandler(gateway, zerolog.Nop()).Register(app.Group("/api/v1/realtime"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return gateway, "ws://" + ln.Addr().String() + "/api/v1/realtime/ws"
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(realtimeSecret))
	require.NoError(t, err)
	return token
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env wireEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestRealtimeHandshakeRejectsMissingOrInvalidToken(t *testing.T) {
	_, url := startRealtimeServer(t)

	for _, target := range []string{url, url + "?token=not-a-jwt"} {
		conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Nil(t, conn)
		require.NotNil(t, resp)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestRealtimeNotificationRoundTrip(t *testing.T) {
	gateway, url := startRealtimeServer(t)
	token := signToken(t, jwt.MapClaims{"id": 5, "role": "client", "fullName": "Ada Client"})

	conn := dial(t, url+"?token="+token, nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-notifications","data":5}`)))

	room := realtime.NotificationRoom("5")
	require.Eventually(t, func() bool {
		return gateway.Registry().Subscribers(room) == 1
	}, 2*time.Second, 10*time.Millisecond)

	gateway.Emit(room, realtime.NotificationCount{Count: 3})

	env := readEnvelope(t, conn)
	require.Equal(t, realtime.EventNotificationCount, env.Event)
	require.Equal(t, room, env.Room)
	require.JSONEq(t, `{"count":3}`, string(env.Data))
}

func TestRealtimeIgnoresForeignNotificationJoin(t *testing.T) {
	gateway, url := startRealtimeServer(t)
	header := http.Header{}
	header.Set(fiber.HeaderAuthorization, "Bearer "+signToken(t, jwt.MapClaims{"sub": "5"}))

	conn := dial(t, url, header)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-notifications","data":"9"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-chat-room","data":"12"}`)))

	require.Eventually(t, func() bool {
		return gateway.Registry().Subscribers(realtime.ChatRoom("12")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, gateway.Registry().Subscribers(realtime.NotificationRoom("9")))
}

func TestRealtimePresenceLifecycle(t *testing.T) {
	gateway, url := startRealtimeServer(t)

	first := dial(t, url+"?token="+signToken(t, jwt.MapClaims{"id": "5"}), nil)
	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-presence-room","data":"case-3"}`)))

	added := readEnvelope(t, first)
	require.Equal(t, realtime.EventPresenceMemberAdded, added.Event)
	state := readEnvelope(t, first)
	require.Equal(t, realtime.EventPresenceState, state.Event)
	require.JSONEq(t, `{"room":"case-3","members":["5"]}`, string(state.Data))

	second := dial(t, url+"?token="+signToken(t, jwt.MapClaims{"id": "9"}), nil)
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-presence-room","data":"case-3"}`)))

	joined := readEnvelope(t, first)
	require.Equal(t, realtime.EventPresenceMemberAdded, joined.Event)
	require.True(t, strings.Contains(string(joined.Data), `"9"`))
	both := readEnvelope(t, first)
	require.Equal(t, realtime.EventPresenceState, both.Event)
	require.JSONEq(t, `{"room":"case-3","members":["5","9"]}`, string(both.Data))

	require.NoError(t, second.Close())

	removed := readEnvelope(t, first)
	require.Equal(t, realtime.EventPresenceMemberRemoved, removed.Event)
	require.True(t, strings.Contains(string(removed.Data), `"9"`))
	after := readEnvelope(t, first)
	require.JSONEq(t, `{"room":"case-3","members":["5"]}`, string(after.Data))
	require.Eventually(t, func() bool {
		return gateway.Registry().Subscribers(realtime.PresenceRoom("case-3")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
