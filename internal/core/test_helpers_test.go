package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drainEvents empties the channel and returns everything that was queued.
func drainEvents(ch <-chan *Event) []*Event {
	var events []*Event
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// countKind tallies events of one kind in a drained slice.
func countKind(events []*Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// checkInvariants verifies bidirectional membership consistency and that no
// empty room lingers in the registry.
func checkInvariants(t *testing.T, r *Registry) {
	t.Helper()

	for name, members := range r.rooms {
		if len(members) == 0 {
			t.Fatalf("room %q exists with empty member set", name)
		}
		for id, sess := range members {
			if _, ok := sess.rooms[name]; !ok {
				t.Fatalf("session %q is in room %q but room is not in its joined set", id, name)
			}
		}
	}
	for id, sess := range r.sessions {
		for name := range sess.rooms {
			members, ok := r.rooms[name]
			if !ok {
				t.Fatalf("session %q claims room %q which does not exist", id, name)
			}
			if _, ok := members[id]; !ok {
				t.Fatalf("session %q claims room %q but is not in its member set", id, name)
			}
		}
	}
}
