package http

import (
	"context"
	"encoding/json"

	"github.com/beereshbc/collabroom-server/internal/core"
	"github.com/beereshbc/collabroom-server/internal/proto"
)

// dispatch routes one inbound frame to the channel handler it targets.
// Validation problems, malformed payload fields included, come back as
// a protocol error for the offending session and never end it.
func (h *WSHandler) dispatch(ctx context.Context, session *core.Session, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundJoinDocument:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return badPayload()
		}
		if join.Room == "" {
			return roomRequired()
		}
		h.engine.Document.Join(ctx, join.Room, session)
		return nil

	case proto.InboundDocumentDelta:
		var delta proto.DeltaData
		if err := json.Unmarshal(inbound.Data, &delta); err != nil {
			return badPayload()
		}
		if delta.Room == "" {
			return roomRequired()
		}
		h.engine.Document.ApplyDelta(delta.Room, session, delta.Delta)
		return nil

	case proto.InboundDocumentSave:
		var save proto.SaveDocumentData
		if err := json.Unmarshal(inbound.Data, &save); err != nil {
			return badPayload()
		}
		if save.Room == "" {
			return roomRequired()
		}
		h.engine.Document.Save(ctx, save.Room, save.Content)
		return nil

	case proto.InboundJoinBoard:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return badPayload()
		}
		if join.Room == "" {
			return roomRequired()
		}
		h.engine.Board.Join(ctx, join.Room, session)
		return nil

	case proto.InboundAddStroke:
		var stroke proto.StrokeData
		if err := json.Unmarshal(inbound.Data, &stroke); err != nil {
			return badPayload()
		}
		if stroke.Room == "" {
			return roomRequired()
		}
		h.engine.Board.AddStroke(ctx, stroke.Room, session, stroke.Stroke)
		return nil

	case proto.InboundUndoStroke:
		var undo proto.UndoData
		if err := json.Unmarshal(inbound.Data, &undo); err != nil {
			return badPayload()
		}
		if undo.Room == "" {
			return roomRequired()
		}
		h.engine.Board.Undo(ctx, undo.Room, session, undo.StrokeID)
		return nil

	case proto.InboundSaveBoard:
		var save proto.SaveBoardData
		if err := json.Unmarshal(inbound.Data, &save); err != nil {
			return badPayload()
		}
		if save.Room == "" {
			return roomRequired()
		}
		h.engine.Board.Replace(ctx, save.Room, save.Strokes)
		return nil

	case proto.InboundClearBoard:
		var clear proto.JoinData
		if err := json.Unmarshal(inbound.Data, &clear); err != nil {
			return badPayload()
		}
		if clear.Room == "" {
			return roomRequired()
		}
		h.engine.Board.Clear(ctx, clear.Room)
		return nil

	case proto.InboundJoinChat:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return badPayload()
		}
		if join.Room == "" {
			return roomRequired()
		}
		h.engine.Chat.Join(ctx, join.Room, session)
		return nil

	case proto.InboundChatMessage:
		var msg proto.ChatSendData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return badPayload()
		}
		if msg.Room == "" {
			return roomRequired()
		}
		h.engine.Chat.Send(ctx, msg.Room, session, msg.User, msg.Text)
		return nil

	case proto.InboundJoinPresence:
		var join proto.PresenceJoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return badPayload()
		}
		if join.Room == "" {
			return roomRequired()
		}
		if join.UserKey == "" {
			return &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "usn is required"}
		}
		h.engine.Presence.Join(join.Room, join.UserKey, join.Username, session)
		return nil

	default:
		return &proto.Error{Code: proto.ErrCodeUnknownMessage, Msg: "unknown message type"}
	}
}

func roomRequired() *proto.Error {
	return &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "room is required"}
}

func badPayload() *proto.Error {
	return &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "malformed payload"}
}

func outboundFromEvent(event core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventDocumentLoaded:
		return outboundEvent(proto.EventDocumentLoaded, proto.DocumentPayload{
			Room:    event.Room,
			Content: event.Content,
		})
	case core.EventDocumentDelta:
		return outboundEvent(proto.EventDocumentDelta, proto.DocumentPayload{
			Room:    event.Room,
			Content: event.Content,
		})
	case core.EventBoardLoaded:
		return outboundEvent(proto.EventBoardLoaded, proto.BoardPayload{
			Room:    event.Room,
			Strokes: event.Strokes,
		})
	case core.EventStrokeAdded:
		payload := proto.StrokePayload{Room: event.Room}
		if event.Stroke != nil {
			payload.Stroke = *event.Stroke
		}
		return outboundEvent(proto.EventStrokeAdded, payload)
	case core.EventStrokeUndone:
		return outboundEvent(proto.EventStrokeUndone, proto.UndoPayload{
			Room:     event.Room,
			StrokeID: event.StrokeID,
		})
	case core.EventBoardCleared:
		return outboundEvent(proto.EventBoardCleared, proto.ClearPayload{
			Room: event.Room,
		})
	case core.EventChatLoaded:
		return outboundEvent(proto.EventChatLoaded, proto.ChatHistoryPayload{
			Room:     event.Room,
			Messages: event.Messages,
		})
	case core.EventChatMessage:
		payload := proto.ChatPayload{Room: event.Room}
		if event.Message != nil {
			payload.Message = *event.Message
		}
		return outboundEvent(proto.EventChatMessage, payload)
	case core.EventPresenceUpdated:
		users := make([]proto.RosterEntry, 0, len(event.Roster))
		for _, entry := range event.Roster {
			users = append(users, proto.RosterEntry{UserKey: entry.UserKey, Username: entry.Username})
		}
		return outboundEvent(proto.EventPresenceUpdated, proto.PresencePayload{
			Room:  event.Room,
			Users: users,
		})
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func outboundEvent(name string, data any) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: name,
		Data:  data,
	}
}
