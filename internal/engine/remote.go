package engine

import (
	"log"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
	"github.com/drawbridge-app/drawbridge/internal/protocol"
)

// HandleFrame decodes one server frame and applies it to the mirror.
// Unknown or malformed frames are logged and skipped; a bad frame
// must never corrupt the local history.
func (e *Engine) HandleFrame(data []byte) {
	ev, err := protocol.DecodeServer(data)
	if err != nil {
		log.Printf("Skipping bad server frame: %v", err)
		return
	}

	switch ev := ev.(type) {
	case protocol.RoomJoinedEvent:
		e.JoinedRoom(ev.User, ev.Operations, ev.Users)
	case protocol.UserJoinedEvent:
		e.UserJoined(ev.User)
	case protocol.UserLeftEvent:
		e.UserLeft(ev.UserID)
	case protocol.DrawStartEvent:
		e.RemoteDrawStart(ev.UserID, ev.OperationID)
	case protocol.DrawStrokeEvent:
		e.RemoteStroke(ev.Operation)
	case protocol.DrawEndEvent:
		e.RemoteDrawEnd(ev.UserID, ev.Operation)
	case protocol.CursorMoveEvent:
		e.CursorMoved(ev.Position)
	case protocol.UndoEvent:
		e.RemoteUndo(ev.OperationID, ev.UserID)
	case protocol.RedoEvent:
		e.RemoteRedo(ev.Operation, ev.UserID)
	case protocol.ErrorEvent:
		log.Printf("Server error: %s", ev.Message)
	}
}

func (e *Engine) UserJoined(user canvas.RoomUser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.users[user.ID] = user
}

// UserLeft drops the user's presence along with any in-flight preview
// and cursor. A stroke the user never finished disappears here rather
// than leaking into the committed history.
func (e *Engine) UserLeft(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.users, userID)
	delete(e.cursors, userID)
	if _, ok := e.remotePreviews[userID]; ok {
		delete(e.remotePreviews, userID)
		e.redrawLocked()
	}
}

func (e *Engine) RemoteDrawStart(userID, operationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if u, ok := e.users[userID]; ok {
		u.IsDrawing = true
		e.users[userID] = u
	}
}

// RemoteStroke renders a remote in-flight stroke as a preview layer.
// The committed history is untouched until the author's draw:end, so
// an author that vanishes mid-stroke leaves nothing behind.
func (e *Engine) RemoteStroke(op canvas.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.remotePreviews[op.UserID] = op
	e.redrawLocked()
}

// RemoteDrawEnd commits the finished remote operation and drops its
// preview
func (e *Engine) RemoteDrawEnd(userID string, op canvas.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.remotePreviews, userID)
	e.operations = append(e.operations, op)
	if u, ok := e.users[userID]; ok {
		u.IsDrawing = false
		e.users[userID] = u
	}
	e.redrawLocked()
}

// RemoteUndo removes the named operation from the mirror. Removal is a
// no-op when the id is unknown. Only the acting client gains redo
// capability: a removal initiated elsewhere never lands on this
// client's redo stack, and the echo of our own undo finds the
// operation already gone.
func (e *Engine) RemoteUndo(operationID, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := false
	kept := e.operations[:0]
	for _, op := range e.operations {
		if op.ID == operationID {
			removed = true
			continue
		}
		kept = append(kept, op)
	}
	e.operations = kept

	if removed {
		e.redrawLocked()
	}
}

// RemoteRedo appends the reinstated operation unless this client
// already applied it locally
func (e *Engine) RemoteRedo(op canvas.Operation, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if userID == e.userID {
		return
	}
	e.operations = append(e.operations, op)
	e.surface.ApplyOperation(op)
}

func (e *Engine) CursorMoved(pos canvas.CursorPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors[pos.UserID] = pos
}

// Users returns a copy of the current presence set
func (e *Engine) Users() []canvas.RoomUser {
	e.mu.Lock()
	defer e.mu.Unlock()

	users := make([]canvas.RoomUser, 0, len(e.users))
	for _, u := range e.users {
		users = append(users, u)
	}
	return users
}

// Cursors returns the latest known cursor position per user
func (e *Engine) Cursors() map[string]canvas.CursorPosition {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursors := make(map[string]canvas.CursorPosition, len(e.cursors))
	for id, pos := range e.cursors {
		cursors[id] = pos
	}
	return cursors
}
