package core

import "sort"

// RegistryOptions name the membership policy variants instead of burying them
// as constants.
type RegistryOptions struct {
	// CountOnRejoin re-emits the member count when a session joins a room it
	// already belongs to. Join is "ensure membership, then notify".
	CountOnRejoin bool
	// AbsentRoomCount is what MemberCount reports for a room that does not
	// exist in the registry.
	AbsentRoomCount int
}

// DefaultRegistryOptions returns the baseline membership policy.
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		CountOnRejoin:   true,
		AbsentRoomCount: 0,
	}
}

// RoomStat is a point-in-time view of one room for the observability surface.
type RoomStat struct {
	Name    string
	Members int
}

// Registry owns the mapping from room name to member sessions and drives
// user-count notifications. A room exists iff its member set is non-empty.
// All mutation happens on the hub loop, so the registry itself holds no lock.
type Registry struct {
	opts     RegistryOptions
	rooms    map[string]map[string]*Session
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		opts:     opts,
		rooms:    make(map[string]map[string]*Session),
		sessions: make(map[string]*Session),
	}
}

// AddSession starts tracking a session. A session must be added before it can
// join rooms.
func (r *Registry) AddSession(s *Session) {
	r.sessions[s.ID] = s
}

// Join ensures the session is a member of the room, creating the room if
// absent, then emits the current member count to every member. A re-join
// still re-emits the count unless CountOnRejoin is disabled.
func (r *Registry) Join(s *Session, room string) {
	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Session)
		r.rooms[room] = members
	}

	_, already := members[s.ID]
	if !already {
		members[s.ID] = s
		s.rooms[room] = struct{}{}
	}

	if already && !r.opts.CountOnRejoin {
		return
	}
	r.emitCount(room)
}

// Leave removes the session from the room, deleting the room once its member
// set is empty, and emits the post-removal count to the remaining members.
// A pair with no existing membership is a silent no-op.
func (r *Registry) Leave(s *Session, room string) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	if _, ok := members[s.ID]; !ok {
		return
	}

	delete(members, s.ID)
	delete(s.rooms, room)
	if len(members) == 0 {
		delete(r.rooms, room)
	}

	r.emitCount(room)
}

// Disconnect leaves every room the session had joined, emitting one count per
// room, then discards the session. Calling it again for the same session is a
// no-op.
func (r *Registry) Disconnect(s *Session) {
	// Snapshot: Leave mutates s.rooms while we walk it.
	joined := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		joined = append(joined, room)
	}
	for _, room := range joined {
		r.Leave(s, room)
	}

	delete(r.sessions, s.ID)
}

// Broadcast sends an event to all members of the room. Absent or empty rooms
// drop the event silently; delivery is fire-and-forget with slow consumers
// skipped.
func (r *Registry) Broadcast(room string, event *Event) {
	for _, member := range r.rooms[room] {
		select {
		case member.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// MemberCount returns the room's current size, or the configured default for
// rooms not present in the registry.
func (r *Registry) MemberCount(room string) int {
	members, ok := r.rooms[room]
	if !ok {
		return r.opts.AbsentRoomCount
	}
	return len(members)
}

// HasSession reports whether the session is still tracked.
func (r *Registry) HasSession(id string) bool {
	_, ok := r.sessions[id]
	return ok
}

// SessionCount returns the number of tracked sessions.
func (r *Registry) SessionCount() int {
	return len(r.sessions)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}

// Stats returns a snapshot of every room and its size, sorted by name.
func (r *Registry) Stats() []RoomStat {
	stats := make([]RoomStat, 0, len(r.rooms))
	for name, members := range r.rooms {
		stats = append(stats, RoomStat{Name: name, Members: len(members)})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (r *Registry) emitCount(room string) {
	r.Broadcast(room, &Event{
		Kind:  EventUserCount,
		Room:  room,
		Count: len(r.rooms[room]),
	})
}
