package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

// One decoded server-to-client event
type ServerEvent interface {
	serverEvent() string
}

type RoomJoinedEvent struct {
	UserID     string
	User       canvas.RoomUser
	Operations []canvas.Operation
	Users      []canvas.RoomUser
}

type UserJoinedEvent struct {
	User canvas.RoomUser
}

type UserLeftEvent struct {
	UserID string
}

type DrawStartEvent struct {
	UserID      string
	OperationID string
}

type DrawStrokeEvent struct {
	Operation canvas.Operation
}

type DrawEndEvent struct {
	UserID    string
	Operation canvas.Operation
}

type CursorMoveEvent struct {
	Position canvas.CursorPosition
}

type UndoEvent struct {
	OperationID string
	UserID      string
}

type RedoEvent struct {
	Operation canvas.Operation
	UserID    string
}

type ErrorEvent struct {
	Message string
}

func (RoomJoinedEvent) serverEvent() string { return EventRoomJoined }
func (UserJoinedEvent) serverEvent() string { return EventUserJoined }
func (UserLeftEvent) serverEvent() string   { return EventUserLeft }
func (DrawStartEvent) serverEvent() string  { return EventDrawStart }
func (DrawStrokeEvent) serverEvent() string { return EventDrawStroke }
func (DrawEndEvent) serverEvent() string    { return EventDrawEnd }
func (CursorMoveEvent) serverEvent() string { return EventCursorMove }
func (UndoEvent) serverEvent() string       { return EventUndo }
func (RedoEvent) serverEvent() string       { return EventRedo }
func (ErrorEvent) serverEvent() string      { return EventError }

// Parses one server frame into its typed event. Used by the client
// reconciliation side of the protocol.
func DecodeServer(data []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch env.Type {
	case EventRoomJoined:
		var frame roomJoinedFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return RoomJoinedEvent{
			UserID:     frame.UserID,
			User:       frame.User,
			Operations: frame.Operations,
			Users:      frame.Users,
		}, nil

	case EventUserJoined:
		if env.User == nil {
			return nil, fmt.Errorf("%w: %s requires user", ErrValidation, env.Type)
		}
		return UserJoinedEvent{User: *env.User}, nil

	case EventUserLeft:
		return UserLeftEvent{UserID: env.UserID}, nil

	case EventDrawStart:
		return DrawStartEvent{UserID: env.UserID, OperationID: env.OperationID}, nil

	case EventDrawStroke:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return DrawStrokeEvent{Operation: op}, nil

	case EventDrawEnd:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return DrawEndEvent{UserID: env.UserID, Operation: op}, nil

	case EventCursorMove:
		if env.Position == nil {
			return nil, fmt.Errorf("%w: %s requires position", ErrValidation, env.Type)
		}
		return CursorMoveEvent{Position: *env.Position}, nil

	case EventUndo:
		return UndoEvent{OperationID: env.OperationID, UserID: env.UserID}, nil

	case EventRedo:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return RedoEvent{Operation: op, UserID: env.UserID}, nil

	case EventError:
		return ErrorEvent{Message: env.Message}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, env.Type)
	}
}
