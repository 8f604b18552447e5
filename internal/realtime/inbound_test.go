package realtime

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodeInboundVariants(t *testing.T) {
	cases := map[string]InboundEvent{
		`{"event":"join-notifications","data":"9"}`: JoinNotifications{UserID: "9"},
		`{"event":"join-chat-room","data":12}`:      JoinChatRoom{RoomID: "12"},
		`{"event":"leave-chat-room","data":"12"}`:   LeaveChatRoom{RoomID: "12"},
		`{"event":"join-presence-room","data":3}`:   JoinPresenceRoom{RoomID: "3"},
		`{"event":"leave-presence-room","data":3}`:  LeavePresenceRoom{RoomID: "3"},
		`{"event":"typing-start","data":12}`:        StartTyping{RoomID: "12"},
		`{"event":"typing-stop","data":"12"}`:       StopTyping{RoomID: "12"},

		`{"event":"join-notifications","data":"alice@firm.example"}`: JoinNotifications{UserID: "alice@firm.example"},
		`{"event":"join-presence-room","data":"case-7.intake"}`:      JoinPresenceRoom{RoomID: "case-7.intake"},
	}

	for frame, expected := range cases {
		event, err := DecodeInbound([]byte(frame))
		require.NoError(t, err, frame)
		require.Equal(t, expected, event)
	}
}

func TestDecodeInboundRejectsMalformedFrames(t *testing.T) {
	frames := []string{
		`not json`,
		`{"event":"join-chat-room"}`,
		`{"event":"drop-tables","data":"1"}`,
		`{"event":"join-chat-room","data":""}`,
		`{"event":"join-chat-room","data":"1:notif:user:2"}`,
		`{"event":"join-chat-room","data":-4}`,
		`{"event":"join-notifications","data":"alice smith"}`,
		`{"event":"join-chat-room","data":{"roomId":1}}`,
		`["join-chat-room", 1]`,
	}

	for _, frame := range frames {
		_, err := DecodeInbound([]byte(frame))
		require.ErrorIs(t, err, ErrInvalidFrame, frame)
	}
}

func TestDecodeInboundAcceptsEveryVerifiableUserID(t *testing.T) {
	gateway := NewGateway(staticVerifier{"email": {ID: "alice@firm.example", Role: "client"}}, NewRegistry(zerolog.Nop()), Options{}, zerolog.Nop())
	conn, err := gateway.Connect(Handshake{AuthToken: "email"})
	require.NoError(t, err)

	event, err := DecodeInbound([]byte(`{"event":"join-notifications","data":"alice@firm.example"}`))
	require.NoError(t, err)
	gateway.Dispatch(context.Background(), conn, event)

	require.Equal(t, []string{NotificationRoom("alice@firm.example")}, conn.Rooms())
}
