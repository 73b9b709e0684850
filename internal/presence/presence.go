package presence

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

// Tracks the connected users of one room together with the set of
// palette colors they currently hold
type Registry struct {
	mu         sync.RWMutex
	users      map[string]canvas.RoomUser
	usedColors map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		users:      make(map[string]canvas.RoomUser),
		usedColors: make(map[string]bool),
	}
}

// Returns the first palette color not currently in use and marks it
// taken. When the palette is exhausted a random palette color is
// handed out; the resulting duplicate is cosmetic, not an error.
func (r *Registry) AssignColor() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, color := range canvas.UserColors {
		if !r.usedColors[color] {
			r.usedColors[color] = true
			return color
		}
	}

	color := canvas.UserColors[rand.Intn(len(canvas.UserColors))]
	r.usedColors[color] = true
	return color
}

// Returns a color to the pool
func (r *Registry) ReleaseColor(color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.usedColors, color)
}

func (r *Registry) Add(user canvas.RoomUser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// Deletes a user and reports whether they were present
func (r *Registry) Remove(userID string) (canvas.RoomUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if ok {
		delete(r.users, userID)
	}
	return user, ok
}

// Updates a user's live drawing flag; no-op if the user already left
func (r *Registry) SetDrawing(userID string, drawing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return
	}
	user.IsDrawing = drawing
	r.users[userID] = user
}

// Returns the current users ordered by join time
func (r *Registry) Users() []canvas.RoomUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]canvas.RoomUser, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt != users[j].JoinedAt {
			return users[i].JoinedAt < users[j].JoinedAt
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
