package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventUserCount carries the current member count of a room.
	EventUserCount EventKind = iota
	// EventMessage carries a relayed chat message.
	EventMessage
	// EventWarning tells an over-limit sender it is about to be disconnected.
	EventWarning
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind  EventKind
	Room  string
	Count int
	Text  string
}
