package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerochat/zerochat-server/internal/metrics"
)

type submission struct {
	sess *Session
	cmd  *Command
}

// Hub serializes every registry and throttle mutation onto a single
// run-to-completion loop. No event preempts another, which is what keeps the
// membership invariants enforceable without locks in the registry.
type Hub struct {
	log      *zerolog.Logger
	registry *Registry
	throttle *Throttle
	metrics  *metrics.Metrics

	register    chan *Session
	unregister  chan *Session
	submissions chan submission
	stats       chan chan []RoomStat
}

// NewHub constructs the hub. metrics and logger may be nil.
func NewHub(registry *Registry, throttle *Throttle, m *metrics.Metrics, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		log:         logger,
		registry:    registry,
		throttle:    throttle,
		metrics:     m,
		register:    make(chan *Session, 8),
		unregister:  make(chan *Session, 8),
		submissions: make(chan submission, 64),
		stats:       make(chan chan []RoomStat),
	}
}

// RegisterClient hands a new session to the hub and starts pumping its
// commands into the loop. The pump exits once the session is closed.
func (h *Hub) RegisterClient(s *Session) {
	h.register <- s

	go func() {
		for {
			select {
			case cmd := <-s.Commands:
				select {
				case h.submissions <- submission{sess: s, cmd: cmd}:
				case <-s.Done():
					return
				}
			case <-s.Done():
				return
			}
		}
	}()
}

// UnregisterClient tears the session's memberships down. Both network drops
// and throttle escalations end up here.
func (h *Hub) UnregisterClient(s *Session) {
	h.unregister <- s
}

// Stats asks the loop for a snapshot of live rooms.
func (h *Hub) Stats(ctx context.Context) ([]RoomStat, error) {
	reply := make(chan []RoomStat, 1)
	select {
	case h.stats <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run processes events until ctx is canceled. It must be running before any
// client is registered.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case s := <-h.register:
			h.addSession(s)

		case s := <-h.unregister:
			h.drainRegister()
			h.disconnect(s)

		case sub := <-h.submissions:
			h.drainRegister()
			h.dispatch(sub.sess, sub.cmd)

		case reply := <-h.stats:
			reply <- h.registry.Stats()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) addSession(s *Session) {
	h.registry.AddSession(s)
	h.metrics.SetSessions(h.registry.SessionCount())
	h.log.Debug().Str("session_id", s.ID).Str("identity", s.Identity).Msg("session registered")
}

// drainRegister applies pending registrations before a command or unregister
// is handled. A session's registration is always enqueued before its first
// command, so draining here keeps that order even though select picks
// channels arbitrarily.
func (h *Hub) drainRegister() {
	for {
		select {
		case s := <-h.register:
			h.addSession(s)
		default:
			return
		}
	}
}

func (h *Hub) dispatch(s *Session, cmd *Command) {
	// A command can still be queued after its session was unregistered;
	// acting on it would re-add a dead session to a room.
	if !h.registry.HasSession(s.ID) {
		h.log.Debug().Str("session_id", s.ID).Msg("dropping command from closed session")
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		h.registry.Join(s, cmd.Room)
		h.metrics.SetRooms(h.registry.RoomCount())
		h.log.Debug().
			Str("session_id", s.ID).
			Str("room", cmd.Room).
			Int("members", h.registry.MemberCount(cmd.Room)).
			Msg("joined room")

	case CommandLeaveRoom:
		h.registry.Leave(s, cmd.Room)
		h.metrics.SetRooms(h.registry.RoomCount())
		h.log.Debug().
			Str("session_id", s.ID).
			Str("room", cmd.Room).
			Msg("left room")

	case CommandSendMessage:
		h.relay(s, cmd)
	}
}

func (h *Hub) relay(s *Session, cmd *Command) {
	switch h.throttle.ShouldAllow(s.Identity, time.Now()) {
	case VerdictAllow:
		h.registry.Broadcast(cmd.Room, &Event{
			Kind: EventMessage,
			Room: cmd.Room,
			Text: cmd.Text,
		})
		h.metrics.MessageRelayed()

	case VerdictRejectSilently:
		h.metrics.MessageThrottled()
		h.log.Warn().Str("identity", s.Identity).Str("room", cmd.Room).Msg("rate limit hit, message dropped")

	case VerdictRejectAndTerminate:
		h.metrics.MessageThrottled()
		h.log.Warn().Str("identity", s.Identity).Str("session_id", s.ID).Msg("rate limit hit, disconnecting session")
		select {
		case s.Events <- &Event{Kind: EventWarning, Text: "rate limit exceeded, disconnecting"}:
		default:
		}
		s.Close()
	}
}

func (h *Hub) disconnect(s *Session) {
	h.registry.Disconnect(s)
	s.Close()
	h.metrics.SetSessions(h.registry.SessionCount())
	h.metrics.SetRooms(h.registry.RoomCount())
	h.log.Debug().Str("session_id", s.ID).Msg("session disconnected")
}
