package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

// Minimum spacing between network emissions while a stroke or cursor
// is in motion. Samples inside the window are coalesced: the next
// emission carries the full path accumulated so far, so the latest
// sample always wins and nothing is queued.
const emitInterval = 16 * time.Millisecond

// Where committed operations and previews get drawn. Implemented by
// the rendering layer; the engine only decides what to draw and when.
type Surface interface {
	ApplyOperation(op canvas.Operation)
	Clear()
	RedrawAll(ops []canvas.Operation)
}

// Outbound path to the relay
type Emitter interface {
	EmitDrawStart(operationID string)
	EmitDrawStroke(op canvas.Operation)
	EmitDrawEnd(op canvas.Operation)
	EmitCursorMove(x, y float64)
	EmitUndo(operationID string)
	EmitRedo(op canvas.Operation)
}

// Per-client mirror of the room: the server-confirmed operation
// history plus everything ephemeral (the local in-progress stroke,
// remote in-flight strokes, cursors, presence). Ephemeral state is
// composited over the committed history at render time and never
// merged into it before a terminal draw:end.
type Engine struct {
	mu      sync.Mutex
	surface Surface
	emitter Emitter

	userID string

	operations []canvas.Operation
	redoStack  []canvas.Operation

	drawing   bool
	current   canvas.Operation // in-progress local stroke; Points accumulate
	lastEmit  time.Time
	lastCursor time.Time

	users          map[string]canvas.RoomUser
	cursors        map[string]canvas.CursorPosition
	remotePreviews map[string]canvas.Operation // userID -> in-flight stroke

	now   func() time.Time
	newID func() string
}

func New(surface Surface, emitter Emitter) *Engine {
	return &Engine{
		surface:        surface,
		emitter:        emitter,
		operations:     make([]canvas.Operation, 0),
		redoStack:      make([]canvas.Operation, 0),
		users:          make(map[string]canvas.RoomUser),
		cursors:        make(map[string]canvas.CursorPosition),
		remotePreviews: make(map[string]canvas.Operation),
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Applies the room:joined snapshot: adopts the assigned identity,
// replaces the whole local mirror and discards any pre-join state
func (e *Engine) JoinedRoom(ev canvas.RoomUser, operations []canvas.Operation, users []canvas.RoomUser) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.userID = ev.ID
	e.users = make(map[string]canvas.RoomUser, len(users))
	for _, u := range users {
		e.users[u.ID] = u
	}
	e.syncLocked(operations)
}

// Replaces the committed history wholesale (rejoin/resync). Clears
// the redo stack and all previews.
func (e *Engine) SyncOperations(operations []canvas.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncLocked(operations)
}

func (e *Engine) syncLocked(operations []canvas.Operation) {
	e.operations = make([]canvas.Operation, len(operations))
	copy(e.operations, operations)
	e.redoStack = e.redoStack[:0]
	e.remotePreviews = make(map[string]canvas.Operation)
	e.drawing = false
	e.redrawLocked()
}

// StartStroke begins a local stroke at (x, y). Emits draw:start so
// other clients can show the author as drawing.
func (e *Engine) StartStroke(x, y float64, tool canvas.OperationType, color string, width float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drawing {
		return
	}
	e.drawing = true
	e.current = canvas.Operation{
		ID:     e.newID(),
		UserID: e.userID,
		Type:   tool,
		Points: []canvas.Point{{X: x, Y: y}},
		Color:  color,
		Width:  width,
	}
	e.emitter.EmitDrawStart(e.current.ID)
}

// AddPoint extends the in-progress stroke, repaints the preview and
// emits the accumulated stroke at most once per emit window
func (e *Engine) AddPoint(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drawing {
		return
	}
	e.current.Points = append(e.current.Points, canvas.Point{X: x, Y: y})
	e.surface.ApplyOperation(e.snapshotCurrent())

	now := e.now()
	if now.Sub(e.lastEmit) >= emitInterval {
		e.lastEmit = now
		e.emitter.EmitDrawStroke(e.snapshotCurrent())
	}
}

// EndStroke finalizes the local stroke: commits it to the history,
// clears the redo stack and emits the full operation unconditionally,
// followed by draw:end
func (e *Engine) EndStroke() (canvas.Operation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drawing {
		return canvas.Operation{}, false
	}
	e.drawing = false

	op := e.snapshotCurrent()
	op.Timestamp = e.now().UnixMilli()
	e.operations = append(e.operations, op)
	e.redoStack = e.redoStack[:0]

	e.emitter.EmitDrawStroke(op)
	e.emitter.EmitDrawEnd(op)
	return op, true
}

// MoveCursor reports the local pointer position, coalesced to one
// emission per emit window
func (e *Engine) MoveCursor(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if now.Sub(e.lastCursor) < emitInterval {
		return
	}
	e.lastCursor = now
	e.emitter.EmitCursorMove(x, y)
}

// Undo removes the most recent committed operation, keeps it on the
// personal redo stack and announces the removal
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.operations) == 0 {
		return false
	}
	op := e.operations[len(e.operations)-1]
	e.operations = e.operations[:len(e.operations)-1]
	e.redoStack = append(e.redoStack, op)
	e.redrawLocked()
	e.emitter.EmitUndo(op.ID)
	return true
}

// Redo restores the most recently undone operation and announces it
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.redoStack) == 0 {
		return false
	}
	op := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	e.operations = append(e.operations, op)
	e.surface.ApplyOperation(op)
	e.emitter.EmitRedo(op)
	return true
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.operations) > 0
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redoStack) > 0
}

func (e *Engine) OperationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.operations)
}

// Operations returns a copy of the committed history mirror
func (e *Engine) Operations() []canvas.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()

	ops := make([]canvas.Operation, len(e.operations))
	copy(ops, e.operations)
	return ops
}

func (e *Engine) snapshotCurrent() canvas.Operation {
	op := e.current
	op.Points = make([]canvas.Point, len(e.current.Points))
	copy(op.Points, e.current.Points)
	return op
}

// Repaints the committed history, then any in-flight previews on top
func (e *Engine) redrawLocked() {
	e.surface.RedrawAll(e.operations)
	for _, op := range e.remotePreviews {
		e.surface.ApplyOperation(op)
	}
	if e.drawing {
		e.surface.ApplyOperation(e.snapshotCurrent())
	}
}
