package http

import (
	"context"
	"errors"
	"io"
	"net"
	stdhttp "net/http"
	"strings"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/zerochat/zerochat-server/internal/core"
	"github.com/zerochat/zerochat-server/internal/proto"
	"github.com/zerochat/zerochat-server/internal/utils"
)

// errSessionClosed marks a server-side teardown (throttle escalation).
var errSessionClosed = errors.New("session closed by server")

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := core.NewSession(utils.NewID(), clientIdentity(r))
	h.hub.RegisterClient(sess)
	defer h.hub.UnregisterClient(sess)

	h.log.Info().Str("session_id", sess.ID).Str("identity", sess.Identity).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errSessionClosed) {
		// Forced close after a throttle escalation; the warning event has
		// already been flushed.
		status = websocket.StatusPolicyViolation
		reason = "rate limit exceeded"
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, err := inboundToCommand(inbound)
		if err != nil {
			// Malformed or unknown events are dropped, never fatal.
			h.log.Debug().Err(err).Str("session_id", sess.ID).Str("event", inbound.Event).Msg("dropping inbound event")
			continue
		}

		select {
		case sess.Commands <- cmd:
		case <-sess.Done():
			return errSessionClosed
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		select {
		case event := <-sess.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", sess.ID).Msg("write ws event")
				return err
			}
		case <-sess.Done():
			// Flush anything already queued (e.g. the warning) before closing.
			for {
				select {
				case event := <-sess.Events:
					if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
						return err
					}
				default:
					return errSessionClosed
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// clientIdentity extracts the throttling key: the first X-Forwarded-For hop
// when present, otherwise the remote host.
func clientIdentity(r *stdhttp.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
