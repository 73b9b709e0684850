package canvas

import "fmt"

// A single point on the shared canvas, in canvas coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type OperationType string

const (
	OpStroke OperationType = "stroke"
	OpErase  OperationType = "erase"
)

// One immutable drawing action. Corrections are expressed as new
// operations; the Points slice is never modified after construction.
type Operation struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Type      OperationType `json:"type"`
	Points    []Point       `json:"points"`
	Color     string        `json:"color"`
	Width     float64       `json:"width"`
	Timestamp int64         `json:"timestamp"`
}

// Checks the shape requirements for an operation arriving off the wire
func (op *Operation) Validate() error {
	if op.ID == "" {
		return fmt.Errorf("operation id is required")
	}
	if op.Type != OpStroke && op.Type != OpErase {
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	if len(op.Points) == 0 {
		return fmt.Errorf("operation must have at least one point")
	}
	if op.Width <= 0 {
		return fmt.Errorf("operation width must be positive, got %v", op.Width)
	}
	if op.Color == "" {
		return fmt.Errorf("operation color is required")
	}
	return nil
}

// A connected participant in a room
type RoomUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDrawing bool   `json:"isDrawing"`
	JoinedAt  int64  `json:"joinedAt"`
}

// Transient cursor location; only the latest position per user matters
// and it is never stored in the operation log
type CursorPosition struct {
	UserID    string  `json:"userId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

func (p *CursorPosition) Validate() error {
	if p.Timestamp < 0 {
		return fmt.Errorf("cursor timestamp must not be negative")
	}
	return nil
}

// Palette used for per-room user color assignment
var UserColors = []string{
	"#3B82F6", // blue
	"#8B5CF6", // purple
	"#10B981", // green
	"#F59E0B", // amber
	"#EF4444", // red
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#84CC16", // lime
	"#F97316", // orange
	"#A855F7", // violet
	"#14B8A6", // teal
	"#F43F5E", // rose
}
