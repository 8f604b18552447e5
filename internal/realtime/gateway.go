package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/observability"
)

const defaultPingInterval = 30 * time.Second

// Handshake carries the credential material presented when a client connects.
type Handshake struct {
	AuthToken     string
	Authorization string
}

// Transport is the duplex frame channel behind a connection.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// MembershipChecker confirms chat room participation before a join is accepted.
type MembershipChecker interface {
	IsChatParticipant(ctx context.Context, roomID, userID string) (bool, error)
}

// Options tunes the gateway.
type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	// Membership, when set, restricts join-chat-room to the room's participants.
	Membership MembershipChecker
}

// Gateway authenticates connections and routes room events between them.
type Gateway struct {
	verifier auth.Verifier
	registry *Registry
	opts     Options
	logger   zerolog.Logger
}

// NewGateway wires a gateway around the verifier and registry.
func NewGateway(verifier auth.Verifier, registry *Registry, opts Options, logger zerolog.Logger) *Gateway {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}

	return &Gateway{
		verifier: verifier,
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "realtime_gateway").Logger(),
	}
}

// Registry exposes the gateway's room registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Connect verifies the handshake credential and creates a connection bound to its identity.
// No room is joined.
func (g *Gateway) Connect(handshake Handshake) (*Connection, error) {
	token := auth.BearerToken(handshake.AuthToken, handshake.Authorization)
	if token == "" || g.verifier == nil {
		observability.RealtimeHandshakes().WithLabelValues("rejected").Inc()
		return nil, auth.ErrUnauthorized
	}

	identity, err := g.verifier.Verify(token)
	if err != nil || identity.ID == "" {
		observability.RealtimeHandshakes().WithLabelValues("rejected").Inc()
		return nil, auth.ErrUnauthorized
	}
	if identity.FullName == "" {
		identity.FullName = auth.DefaultFullName
	}

	observability.RealtimeHandshakes().WithLabelValues("accepted").Inc()
	return newConnection(identity, g.opts.SendBuffer), nil
}

// Dispatch applies one inbound event on behalf of the connection. Rejected
// events are dropped without a reply.
func (g *Gateway) Dispatch(ctx context.Context, conn *Connection, event InboundEvent) {
	logger := g.logger.With().Str("connection_id", conn.ID()).Str("user_id", conn.IdentityID()).Logger()

	switch ev := event.(type) {
	case JoinNotifications:
		if ev.UserID != conn.IdentityID() {
			observability.RealtimeInboundRejected().WithLabelValues("identity_mismatch").Inc()
			logger.Debug().Str("requested_user_id", ev.UserID).Msg("ignoring notification join for another user")
			return
		}
		key := NotificationRoom(ev.UserID)
		conn.join(key, func() { g.registry.Subscribe(key, conn) })

	case JoinChatRoom:
		if !g.allowChatJoin(ctx, conn, ev.RoomID, logger) {
			observability.RealtimeInboundRejected().WithLabelValues("not_participant").Inc()
			return
		}
		key := ChatRoom(ev.RoomID)
		conn.join(key, func() { g.registry.Subscribe(key, conn) })

	case LeaveChatRoom:
		key := ChatRoom(ev.RoomID)
		conn.leave(key, func() { g.registry.Unsubscribe(key, conn) })

	case JoinPresenceRoom:
		g.joinPresence(conn, ev.RoomID)

	case LeavePresenceRoom:
		g.leavePresence(conn, ev.RoomID)

	case StartTyping:
		key := ChatRoom(ev.RoomID)
		if conn.joined(key) {
			g.Emit(key, TypingStarted{UserID: conn.IdentityID(), UserName: conn.Identity().FullName})
		}

	case StopTyping:
		key := ChatRoom(ev.RoomID)
		if conn.joined(key) {
			g.Emit(key, TypingStopped{UserID: conn.IdentityID(), UserName: conn.Identity().FullName})
		}

	default:
		observability.RealtimeInboundRejected().WithLabelValues("unknown_event").Inc()
	}
}

// Disconnect releases every room and presence entry held by the connection
// before announcing presence changes.
func (g *Gateway) Disconnect(conn *Connection) {
	keys := conn.close()

	vacated := make([]string, 0)
	for _, key := range keys {
		if ClassOf(key) == ClassPresence {
			if g.registry.LeavePresence(key, conn) {
				vacated = append(vacated, key)
			}
			continue
		}
		g.registry.Unsubscribe(key, conn)
	}

	for _, key := range vacated {
		g.announceRemoval(key, conn.IdentityID())
	}
}

// Emit validates the event and broadcasts it to the room's current subscribers.
// It never blocks on slow connections.
func (g *Gateway) Emit(room string, event Event) {
	if event == nil {
		return
	}
	name := event.EventName()
	if err := event.Validate(); err != nil {
		observability.RealtimeEventsDropped().WithLabelValues(name, "invalid").Inc()
		g.logger.Warn().Err(err).Str("room", room).Str("event", name).Msg("rejecting invalid realtime event")
		return
	}

	delivered, dropped := g.registry.Broadcast(room, Envelope{Event: name, Room: room, Data: event})
	recordDelivery(name, DeliveryCount{Delivered: delivered, Dropped: dropped})
}

// emitPresence announces a membership change together with the resulting
// presence:state, both ordered against concurrent joins and leaves.
func (g *Gateway) emitPresence(key string, change Event) {
	name := change.EventName()
	if err := change.Validate(); err != nil {
		observability.RealtimeEventsDropped().WithLabelValues(name, "invalid").Inc()
		g.logger.Warn().Err(err).Str("room", key).Str("event", name).Msg("rejecting invalid realtime event")
		return
	}

	changed, state := g.registry.BroadcastPresence(key, PresenceRoomID(key), change)
	recordDelivery(name, changed)
	recordDelivery(EventPresenceState, state)
}

func recordDelivery(name string, count DeliveryCount) {
	if count.Delivered > 0 {
		observability.RealtimeEventsEmitted().WithLabelValues(name).Add(float64(count.Delivered))
	}
	if count.Dropped > 0 {
		observability.RealtimeEventsDropped().WithLabelValues(name, "slow_consumer").Add(float64(count.Dropped))
	}
}

// Serve pumps frames between the transport and the connection until either side
// closes, then disconnects the connection.
func (g *Gateway) Serve(ctx context.Context, conn *Connection, transport Transport) {
	if ctx == nil {
		ctx = context.Background()
	}

	observability.RealtimeConnectionsActive().Inc()
	defer observability.RealtimeConnectionsActive().Dec()

	logger := g.logger.With().Str("connection_id", conn.ID()).Str("user_id", conn.IdentityID()).Logger()
	logger.Info().Str("role", conn.Identity().Role).Msg("realtime connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writePump(conn, transport, logger)
	}()

	g.readPump(ctx, conn, transport, logger)
	g.Disconnect(conn)
	_ = transport.Close()
	<-writerDone

	logger.Info().Msg("realtime connection closed")
}

func (g *Gateway) readPump(ctx context.Context, conn *Connection, transport Transport, logger zerolog.Logger) {
	for {
		_, frame, err := transport.ReadMessage()
		if err != nil {
			logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}

		event, err := DecodeInbound(frame)
		if err != nil {
			observability.RealtimeInboundRejected().WithLabelValues("invalid_frame").Inc()
			logger.Debug().Err(err).Msg("dropping invalid inbound frame")
			continue
		}

		g.Dispatch(ctx, conn, event)
	}
}

func (g *Gateway) writePump(conn *Connection, transport Transport, logger zerolog.Logger) {
	ticker := time.NewTicker(g.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case envelope := <-conn.Outbound():
			if err := transport.WriteJSON(envelope); err != nil {
				logger.Debug().Err(err).Msg("realtime write loop terminated")
				_ = transport.Close()
				return
			}
		case <-ticker.C:
			if err := transport.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("realtime ping failed")
				_ = transport.Close()
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func (g *Gateway) allowChatJoin(ctx context.Context, conn *Connection, roomID string, logger zerolog.Logger) bool {
	if g.opts.Membership == nil {
		return true
	}

	ok, err := g.opts.Membership.IsChatParticipant(ctx, roomID, conn.IdentityID())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Str("chat_room_id", roomID).Msg("chat membership check failed")
		}
		return false
	}
	return ok
}

func (g *Gateway) joinPresence(conn *Connection, roomID string) {
	key := PresenceRoom(roomID)

	first := false
	if !conn.join(key, func() { first = g.registry.JoinPresence(key, conn) }) {
		return
	}

	if first {
		g.emitPresence(key, PresenceMemberAdded{Room: roomID, ID: conn.IdentityID()})
		return
	}

	// Already represented: only the joining connection needs the current state.
	g.registry.SendPresenceState(key, roomID, conn)
}

func (g *Gateway) leavePresence(conn *Connection, roomID string) {
	key := PresenceRoom(roomID)

	last := false
	if !conn.leave(key, func() { last = g.registry.LeavePresence(key, conn) }) {
		return
	}
	if last {
		g.announceRemoval(key, conn.IdentityID())
	}
}

func (g *Gateway) announceRemoval(key, identity string) {
	g.emitPresence(key, PresenceMemberRemoved{Room: PresenceRoomID(key), ID: identity})
}
