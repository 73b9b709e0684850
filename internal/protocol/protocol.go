package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

// Event names shared by both directions of the wire protocol
const (
	EventRoomJoin   = "room:join"
	EventRoomJoined = "room:joined"
	EventRoomLeave  = "room:leave"
	EventUserJoined = "user:joined"
	EventUserLeft   = "user:left"
	EventDrawStart  = "draw:start"
	EventDrawStroke = "draw:stroke"
	EventDrawEnd    = "draw:end"
	EventCursorMove = "cursor:move"
	EventUndo       = "operation:undo"
	EventRedo       = "operation:redo"
	EventError      = "error"
)

// Returned (wrapped) for any inbound frame that fails schema
// validation. The relay reports these to the sender only and leaves
// the room untouched.
var ErrValidation = errors.New("invalid message")

// One decoded inbound client event
type Inbound interface {
	event() string
}

type JoinRoom struct {
	RoomID   string
	UserName string
}

type LeaveRoom struct{}

type DrawStart struct {
	OperationID string
}

type DrawStroke struct {
	Operation canvas.Operation
}

type DrawEnd struct {
	Operation canvas.Operation
}

type CursorMove struct {
	Position canvas.CursorPosition
}

type Undo struct {
	OperationID string
}

type Redo struct {
	Operation canvas.Operation
}

func (JoinRoom) event() string   { return EventRoomJoin }
func (LeaveRoom) event() string  { return EventRoomLeave }
func (DrawStart) event() string  { return EventDrawStart }
func (DrawStroke) event() string { return EventDrawStroke }
func (DrawEnd) event() string    { return EventDrawEnd }
func (CursorMove) event() string { return EventCursorMove }
func (Undo) event() string       { return EventUndo }
func (Redo) event() string       { return EventRedo }

// Wire envelope covering every event variant; unused fields are
// omitted when encoding and ignored when decoding
type envelope struct {
	Type        string                 `json:"type"`
	RoomID      string                 `json:"roomId,omitempty"`
	UserName    string                 `json:"userName,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	OperationID string                 `json:"operationId,omitempty"`
	Operation   *canvas.Operation      `json:"operation,omitempty"`
	Position    *canvas.CursorPosition `json:"position,omitempty"`
	User        *canvas.RoomUser       `json:"user,omitempty"`
	Operations  []canvas.Operation     `json:"operations,omitempty"`
	Users       []canvas.RoomUser      `json:"users,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// Parses and validates one inbound frame into its typed event. Any
// shape problem yields an error wrapping ErrValidation.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch env.Type {
	case EventRoomJoin:
		if env.RoomID == "" {
			return nil, fmt.Errorf("%w: %s requires roomId", ErrValidation, env.Type)
		}
		return JoinRoom{RoomID: env.RoomID, UserName: env.UserName}, nil

	case EventRoomLeave:
		return LeaveRoom{}, nil

	case EventDrawStart:
		if env.OperationID == "" {
			return nil, fmt.Errorf("%w: %s requires operationId", ErrValidation, env.Type)
		}
		return DrawStart{OperationID: env.OperationID}, nil

	case EventDrawStroke:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return DrawStroke{Operation: op}, nil

	case EventDrawEnd:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return DrawEnd{Operation: op}, nil

	case EventCursorMove:
		if env.Position == nil {
			return nil, fmt.Errorf("%w: %s requires position", ErrValidation, env.Type)
		}
		if err := env.Position.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return CursorMove{Position: *env.Position}, nil

	case EventUndo:
		if env.OperationID == "" {
			return nil, fmt.Errorf("%w: %s requires operationId", ErrValidation, env.Type)
		}
		return Undo{OperationID: env.OperationID}, nil

	case EventRedo:
		op, err := requireOperation(env)
		if err != nil {
			return nil, err
		}
		return Redo{Operation: op}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, env.Type)
	}
}

func requireOperation(env envelope) (canvas.Operation, error) {
	if env.Operation == nil {
		return canvas.Operation{}, fmt.Errorf("%w: %s requires operation", ErrValidation, env.Type)
	}
	if err := env.Operation.Validate(); err != nil {
		return canvas.Operation{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return *env.Operation, nil
}

// Outbound frame constructors. Marshaling an envelope of plain values
// cannot fail, so these return the encoded frame directly.

func marshal(env envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		// Unreachable with these field types; keep the frame valid JSON anyway
		return []byte(`{"type":"error","message":"encoding failure"}`)
	}
	return data
}

// Full room snapshot sent to the joiner. Encoded with its own shape so
// an empty history still serializes as [] rather than being omitted.
type roomJoinedFrame struct {
	Type       string             `json:"type"`
	UserID     string             `json:"userId"`
	User       canvas.RoomUser    `json:"user"`
	Operations []canvas.Operation `json:"operations"`
	Users      []canvas.RoomUser  `json:"users"`
}

func RoomJoined(user canvas.RoomUser, operations []canvas.Operation, users []canvas.RoomUser) []byte {
	if operations == nil {
		operations = []canvas.Operation{}
	}
	if users == nil {
		users = []canvas.RoomUser{}
	}
	data, err := json.Marshal(roomJoinedFrame{
		Type:       EventRoomJoined,
		UserID:     user.ID,
		User:       user,
		Operations: operations,
		Users:      users,
	})
	if err != nil {
		return []byte(`{"type":"error","message":"encoding failure"}`)
	}
	return data
}

func UserJoined(user canvas.RoomUser) []byte {
	return marshal(envelope{Type: EventUserJoined, User: &user})
}

func UserLeft(userID string) []byte {
	return marshal(envelope{Type: EventUserLeft, UserID: userID})
}

func DrawStartFrame(userID, operationID string) []byte {
	return marshal(envelope{Type: EventDrawStart, UserID: userID, OperationID: operationID})
}

func DrawStrokeFrame(op canvas.Operation) []byte {
	return marshal(envelope{Type: EventDrawStroke, Operation: &op})
}

func DrawEndFrame(userID string, op canvas.Operation) []byte {
	return marshal(envelope{Type: EventDrawEnd, UserID: userID, Operation: &op})
}

func CursorMoveFrame(pos canvas.CursorPosition) []byte {
	return marshal(envelope{Type: EventCursorMove, Position: &pos})
}

func UndoFrame(operationID, userID string) []byte {
	return marshal(envelope{Type: EventUndo, OperationID: operationID, UserID: userID})
}

func RedoFrame(op canvas.Operation, userID string) []byte {
	return marshal(envelope{Type: EventRedo, Operation: &op, UserID: userID})
}

func ErrorFrame(message string) []byte {
	return marshal(envelope{Type: EventError, Message: message})
}
