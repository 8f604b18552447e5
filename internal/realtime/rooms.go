package realtime

import "strings"

// Room key prefixes. Clients derive the same keys, so the textual form is part of the wire contract.
const (
	notificationPrefix = "notif:user:"
	chatPrefix         = "chat:room:"
	presencePrefix     = "presence:room:"
)

// RoomClass identifies the family a room key belongs to.
type RoomClass int

const (
	ClassUnknown RoomClass = iota
	ClassNotification
	ClassChat
	ClassPresence
)

// NotificationRoom is the private channel of a single user.
func NotificationRoom(userID string) string {
	return notificationPrefix + userID
}

// ChatRoom is the channel of a two-party chat room.
func ChatRoom(roomID string) string {
	return chatPrefix + roomID
}

// PresenceRoom is the channel of a presence-tracked room.
func PresenceRoom(roomID string) string {
	return presencePrefix + roomID
}

// ClassOf reports which family a key belongs to.
func ClassOf(key string) RoomClass {
	switch {
	case strings.HasPrefix(key, notificationPrefix):
		return ClassNotification
	case strings.HasPrefix(key, chatPrefix):
		return ClassChat
	case strings.HasPrefix(key, presencePrefix):
		return ClassPresence
	default:
		return ClassUnknown
	}
}

// PresenceRoomID strips the presence prefix from a key.
func PresenceRoomID(key string) string {
	return strings.TrimPrefix(key, presencePrefix)
}
