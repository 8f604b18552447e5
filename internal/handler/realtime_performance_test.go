package handler_test

import (
	"math"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/realtime"
)

func TestRealtimeHandshakeP95Under250ms(t *testing.T) {
	if testing.Short() {
		t.Skip("performance check skipped in short mode")
	}

	_, url := startRealtimeServer(t)
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	clients := 200
	durations := make([]time.Duration, 0, clients)
	for i := 0; i < clients; i++ {
		token := signToken(t, jwt.MapClaims{"id": strconv.Itoa(i + 1)})

		start := time.Now()
		conn, resp, err := dialer.Dial(url+"?token="+token, nil)
		require.NoError(t, err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		durations = append(durations, time.Since(start))
		_ = conn.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)
	require.LessOrEqualf(t, p95, 250*time.Millisecond, "handshake p95 %s", p95)
}

func TestRealtimeChatFanOutReachesEverySubscriber(t *testing.T) {
	if testing.Short() {
		t.Skip("performance check skipped in short mode")
	}

	gateway, url := startRealtimeServer(t)

	subscribers := 50
	conns := make([]*websocket.Conn, 0, subscribers)
	for i := 0; i < subscribers; i++ {
		conn := dial(t, url+"?token="+signToken(t, jwt.MapClaims{"id": strconv.Itoa(i + 1)}), nil)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"join-chat-room","data":"77"}`)))
		conns = append(conns, conn)
	}

	room := realtime.ChatRoom("77")
	require.Eventually(t, func() bool {
		return gateway.Registry().Subscribers(room) == subscribers
	}, 5*time.Second, 20*time.Millisecond)

	start := time.Now()
	gateway.Emit(room, realtime.NewMessage{ID: 1, ChatRoomID: 77, SenderID: "1", Type: "text", CreatedAt: time.Now().UTC()})

	for _, conn := range conns {
		env := readEnvelope(t, conn)
		require.Equal(t, realtime.EventNewMessage, env.Event)
	}
	require.Less(t, time.Since(start), time.Second)
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}
