package relay

import (
	"errors"
	"log"
	"sync"

	"github.com/drawbridge-app/drawbridge/internal/protocol"
	"github.com/drawbridge-app/drawbridge/internal/ratelimit"
	"github.com/drawbridge-app/drawbridge/internal/room"
)

const (
	// Server-side backstop for cursor floods; well above the client
	// engine's own 16ms coalescing window
	cursorEventsPerSecond = 120
	cursorEventBurst      = 240
)

// Routes inbound client events to room mutations and fans the
// resulting frames out to the right subset of sessions. A single
// mutex serializes event handling, so every event is applied to room
// state atomically and in arrival order.
type Handler struct {
	mu           sync.Mutex
	manager      *room.Manager
	sessions     map[string]*session        // connID -> session
	members      map[string]map[string]Conn // roomID -> connID -> conn
	cursorLimits *ratelimit.PerClient
}

func NewHandler(manager *room.Manager) *Handler {
	return &Handler{
		manager:      manager,
		sessions:     make(map[string]*session),
		members:      make(map[string]map[string]Conn),
		cursorLimits: ratelimit.NewPerClient(cursorEventsPerSecond, cursorEventBurst),
	}
}

// Registers a freshly upgraded connection
func (h *Handler) Connect(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[conn.ID()] = &session{conn: conn}
	log.Printf("Session %s connected (total: %d)", conn.ID(), len(h.sessions))
}

// Processes one raw inbound frame from the transport. A failure in
// one session's event must never reach another session, so decode
// errors go back to the sender only and handler panics are contained.
func (h *Handler) HandleMessage(conn Conn, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered panic handling event from %s: %v", conn.ID(), r)
		}
	}()

	s, ok := h.sessions[conn.ID()]
	if !ok {
		return
	}

	ev, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrValidation) {
			h.sendTo(conn, protocol.ErrorFrame(err.Error()))
			return
		}
		log.Printf("Decode error from %s: %v", conn.ID(), err)
		return
	}

	switch ev := ev.(type) {
	case protocol.JoinRoom:
		h.handleJoin(s, ev)
	case protocol.LeaveRoom:
		h.handleLeave(s)
	case protocol.DrawStart:
		h.handleDrawStart(s, ev)
	case protocol.DrawStroke:
		h.handleDrawStroke(s, ev)
	case protocol.DrawEnd:
		h.handleDrawEnd(s, ev)
	case protocol.CursorMove:
		h.handleCursorMove(s, ev)
	case protocol.Undo:
		h.handleUndo(s, ev)
	case protocol.Redo:
		h.handleRedo(s, ev)
	}
}

// The cleanup path of last resort: always runs when the transport
// drops, whether or not the client said goodbye
func (h *Handler) Disconnect(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[conn.ID()]
	if !ok {
		return
	}
	h.handleLeave(s)
	delete(h.sessions, conn.ID())
	h.cursorLimits.Remove(conn.ID())
	log.Printf("Session %s disconnected (total: %d)", conn.ID(), len(h.sessions))
}

func (h *Handler) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) handleJoin(s *session, ev protocol.JoinRoom) {
	// One room per session: joining implies leaving the previous room
	if s.inRoom() {
		h.handleLeave(s)
	}

	name := ev.UserName
	if name == "" {
		name = defaultUserName(s.conn.ID())
	}

	r, user := h.manager.Join(ev.RoomID, s.conn.ID(), name)
	s.roomID = ev.RoomID
	s.userID = user.ID

	if h.members[ev.RoomID] == nil {
		h.members[ev.RoomID] = make(map[string]Conn)
	}
	h.members[ev.RoomID][s.conn.ID()] = s.conn

	h.sendTo(s.conn, protocol.RoomJoined(user, r.Snapshot(), r.Users()))
	h.broadcast(ev.RoomID, protocol.UserJoined(user), s.conn.ID())
	log.Printf("User %s joined room %s", s.conn.ID(), ev.RoomID)
}

func (h *Handler) handleLeave(s *session) {
	if !s.inRoom() {
		return
	}

	roomID := s.roomID
	if _, ok := h.manager.Leave(roomID, s.userID); ok {
		h.broadcast(roomID, protocol.UserLeft(s.userID), s.conn.ID())
	}

	if conns, ok := h.members[roomID]; ok {
		delete(conns, s.conn.ID())
		if len(conns) == 0 {
			delete(h.members, roomID)
		}
	}

	log.Printf("User %s left room %s", s.userID, roomID)
	s.roomID = ""
	s.userID = ""
}

func (h *Handler) handleDrawStart(s *session, ev protocol.DrawStart) {
	r, ok := h.sessionRoom(s, protocol.EventDrawStart)
	if !ok {
		return
	}
	r.SetDrawing(s.userID, true)
	h.broadcast(s.roomID, protocol.DrawStartFrame(s.userID, ev.OperationID), s.conn.ID())
}

func (h *Handler) handleDrawStroke(s *session, ev protocol.DrawStroke) {
	r, ok := h.sessionRoom(s, protocol.EventDrawStroke)
	if !ok {
		return
	}
	r.Append(ev.Operation)
	h.broadcast(s.roomID, protocol.DrawStrokeFrame(ev.Operation), s.conn.ID())
}

func (h *Handler) handleDrawEnd(s *session, ev protocol.DrawEnd) {
	r, ok := h.sessionRoom(s, protocol.EventDrawEnd)
	if !ok {
		return
	}
	// The final operation is already durable via its draw:stroke frames
	r.SetDrawing(s.userID, false)
	h.broadcast(s.roomID, protocol.DrawEndFrame(s.userID, ev.Operation), s.conn.ID())
}

func (h *Handler) handleCursorMove(s *session, ev protocol.CursorMove) {
	if _, ok := h.sessionRoom(s, protocol.EventCursorMove); !ok {
		return
	}
	if !h.cursorLimits.Allow(s.conn.ID()) {
		return
	}
	// Never persisted; tagged with the sender id so clients cannot spoof
	pos := ev.Position
	pos.UserID = s.userID
	h.broadcast(s.roomID, protocol.CursorMoveFrame(pos), s.conn.ID())
}

func (h *Handler) handleUndo(s *session, ev protocol.Undo) {
	r, ok := h.sessionRoom(s, protocol.EventUndo)
	if !ok {
		return
	}
	r.RemoveOperation(ev.OperationID)
	// Everyone converges on the server-confirmed log, sender included
	h.broadcast(s.roomID, protocol.UndoFrame(ev.OperationID, s.userID), "")
}

func (h *Handler) handleRedo(s *session, ev protocol.Redo) {
	r, ok := h.sessionRoom(s, protocol.EventRedo)
	if !ok {
		return
	}
	r.Append(ev.Operation)
	h.broadcast(s.roomID, protocol.RedoFrame(ev.Operation, s.userID), "")
}

// Resolves the session's current room; room-scoped events from a
// session that is not in a room are dropped and logged
func (h *Handler) sessionRoom(s *session, event string) (*room.Room, bool) {
	if !s.inRoom() {
		log.Printf("Dropping %s from %s: not in a room", event, s.conn.ID())
		return nil, false
	}
	r, ok := h.manager.Get(s.roomID)
	if !ok {
		log.Printf("Dropping %s from %s: room %s gone", event, s.conn.ID(), s.roomID)
		return nil, false
	}
	return r, ok
}

// Fans a frame out to every session in the room except exceptID
// (empty string sends to all, used by undo/redo)
func (h *Handler) broadcast(roomID string, data []byte, exceptID string) {
	for id, conn := range h.members[roomID] {
		if id == exceptID {
			continue
		}
		h.sendTo(conn, data)
	}
}

func (h *Handler) sendTo(conn Conn, data []byte) {
	if err := conn.Send(data); err != nil {
		// At-most-once delivery: the frame is dropped and the client
		// catches up through a full resync on its next join
		log.Printf("Dropping frame for %s: %v", conn.ID(), err)
	}
}

func defaultUserName(connID string) string {
	if len(connID) > 4 {
		connID = connID[:4]
	}
	return "User " + connID
}

