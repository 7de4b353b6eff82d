// Package proto defines the JSON wire contract between clients and the relay.
package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	// InboundJoinRoom subscribes the connection to a room.
	InboundJoinRoom = "join-room"
	// InboundLeaveRoom unsubscribes the connection from a room.
	InboundLeaveRoom = "leave-room"
	// InboundSendMessage relays a text message to a room.
	InboundSendMessage = "send-message"

	// OutboundUserCount carries a room's member count as an integer.
	OutboundUserCount = "user-count"
	// OutboundReceiveMessage carries a relayed message.
	OutboundReceiveMessage = "receive-message"
	// OutboundWarning precedes a forced disconnect of an abusive sender.
	OutboundWarning = "warning"
)

// RoomData names the room a join or leave targets.
type RoomData struct {
	RoomID string `json:"roomId"`
}

// MessageData is a chat message bound for a room.
type MessageData struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ReceiveMessageData is the relayed message payload.
type ReceiveMessageData struct {
	Text string `json:"text"`
}
