package room

import (
	"sync"
	"time"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
	"github.com/drawbridge-app/drawbridge/internal/oplog"
	"github.com/drawbridge-app/drawbridge/internal/presence"
)

// A collaborative drawing session. All mutation goes through Room
// methods; connections only ever hold the room id and their user id.
type Room struct {
	ID string

	mu        sync.Mutex
	log       *oplog.Log
	users     *presence.Registry
	peakUsers int
}

func NewRoom(id string) *Room {
	return &Room{
		ID:    id,
		log:   oplog.New(),
		users: presence.NewRegistry(),
	}
}

// Registers a user, assigning the first free palette color. The color
// assignment and the user insert happen under one lock so two joiners
// can never race into the same color while the palette has free slots.
func (r *Room) Join(userID, name string) canvas.RoomUser {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := canvas.RoomUser{
		ID:       userID,
		Name:     name,
		Color:    r.users.AssignColor(),
		JoinedAt: time.Now().UnixMilli(),
	}
	r.users.Add(user)

	if n := r.users.Count(); n > r.peakUsers {
		r.peakUsers = n
	}
	return user
}

// Removes a user and releases their color. Reports false if the user
// was not in the room, which makes a second leave or disconnect a no-op.
func (r *Room) Leave(userID string) (canvas.RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users.Remove(userID)
	if !ok {
		return canvas.RoomUser{}, false
	}
	r.users.ReleaseColor(user.Color)
	return user, true
}

func (r *Room) SetDrawing(userID string, drawing bool) {
	r.users.SetDrawing(userID, drawing)
}

func (r *Room) Append(op canvas.Operation) {
	r.log.Append(op)
}

func (r *Room) RemoveOperation(opID string) {
	r.log.Remove(opID)
}

func (r *Room) Snapshot() []canvas.Operation {
	return r.log.Snapshot()
}

func (r *Room) Users() []canvas.RoomUser {
	return r.users.Users()
}

func (r *Room) UserCount() int {
	return r.users.Count()
}

func (r *Room) OperationCount() int {
	return r.log.Len()
}

func (r *Room) PeakUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peakUsers
}

// Discards all room state
func (r *Room) clear() {
	r.log.Clear()
}
