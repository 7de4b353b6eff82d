package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the session to a room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the session from a room.
	CommandLeaveRoom
	// CommandSendMessage relays a text message to room members.
	CommandSendMessage
)

// Command represents an action requested by a session.
type Command struct {
	Kind CommandKind
	Room string
	Text string
}
