package http

import (
	"encoding/json"
	"errors"

	"github.com/zerochat/zerochat-server/internal/core"
	"github.com/zerochat/zerochat-server/internal/proto"
)

var (
	errMissingRoom  = errors.New("roomId is required")
	errMissingText  = errors.New("text is required")
	errUnknownEvent = errors.New("unknown event name")
)

// inboundToCommand maps a wire event to a core command. Malformed events
// return an error and are dropped by the caller; they never close the
// connection.
func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Event {
	case proto.InboundJoinRoom:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.RoomID == "" {
			return nil, errMissingRoom
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Room: data.RoomID,
		}, nil

	case proto.InboundLeaveRoom:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.RoomID == "" {
			return nil, errMissingRoom
		}
		return &core.Command{
			Kind: core.CommandLeaveRoom,
			Room: data.RoomID,
		}, nil

	case proto.InboundSendMessage:
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.RoomID == "" {
			return nil, errMissingRoom
		}
		if data.Text == "" {
			return nil, errMissingText
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Room: data.RoomID,
			Text: data.Text,
		}, nil

	default:
		return nil, errUnknownEvent
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventUserCount:
		return proto.Outbound{
			Event: proto.OutboundUserCount,
			Data:  event.Count,
		}
	case core.EventMessage:
		return proto.Outbound{
			Event: proto.OutboundReceiveMessage,
			Data:  proto.ReceiveMessageData{Text: event.Text},
		}
	case core.EventWarning:
		return proto.Outbound{
			Event: proto.OutboundWarning,
			Data:  event.Text,
		}
	default:
		return proto.Outbound{}
	}
}
