package room

import (
	"log"
	"sync"
	"time"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

const DefaultGracePeriod = 60 * time.Second

// Receives room lifecycle notifications, e.g. for the activity journal.
// Implementations must not block; the manager calls them off the hot
// path but still expects them to return promptly.
type Journal interface {
	RoomOpened(roomID string) error
	RoomClosed(roomID string, operations, peakUsers int) error
}

// Owns every live Room and its lifecycle: rooms come into existence on
// first reference and are destroyed once they have been empty for the
// grace period. A rejoin during the grace period cancels the pending
// destruction rather than relying on the old timer to notice.
type Manager struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	timers  map[string]*time.Timer
	grace   time.Duration
	journal Journal
}

func NewManager(grace time.Duration, journal Journal) *Manager {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Manager{
		rooms:   make(map[string]*Room),
		timers:  make(map[string]*time.Timer),
		grace:   grace,
		journal: journal,
	}
}

// Adds a user to the room, creating it first if needed, and returns
// the room together with the registered user. Joining a draining room
// cancels its pending destruction.
func (m *Manager) Join(roomID, userID, name string) (*Room, canvas.RoomUser) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.ensureLocked(roomID)
	user := r.Join(userID, name)
	return r, user
}

// Removes a user from the room. When the last user leaves, the room
// enters its grace period. Reports false if the user was not a member.
func (m *Manager) Leave(roomID, userID string) (canvas.RoomUser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.rooms[roomID]
	if !exists {
		return canvas.RoomUser{}, false
	}

	user, removed := r.Leave(userID)
	if !removed {
		return canvas.RoomUser{}, false
	}

	if r.UserCount() == 0 {
		m.scheduleDestroyLocked(roomID)
	}
	return user, true
}

// Returns the live room, if any. Never creates.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

func (m *Manager) ensureLocked(roomID string) *Room {
	if t, ok := m.timers[roomID]; ok {
		t.Stop()
		delete(m.timers, roomID)
	}

	r, ok := m.rooms[roomID]
	if !ok {
		r = NewRoom(roomID)
		m.rooms[roomID] = r
		log.Printf("Room %s created", roomID)
		if m.journal != nil {
			go m.recordOpened(roomID)
		}
	}
	return r
}

func (m *Manager) scheduleDestroyLocked(roomID string) {
	// Supersede any timer from a previous drain of the same room
	if t, ok := m.timers[roomID]; ok {
		t.Stop()
	}
	m.timers[roomID] = time.AfterFunc(m.grace, func() {
		m.destroyIfEmpty(roomID)
	})
	log.Printf("Room %s empty, destruction in %v", roomID, m.grace)
}

// Fires at the end of the grace period. The room may have refilled (and
// possibly emptied again) since the timer was armed, so current
// emptiness is re-checked under the lock before anything is discarded.
func (m *Manager) destroyIfEmpty(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok || r.UserCount() > 0 {
		return
	}

	ops, peak := r.OperationCount(), r.PeakUsers()
	r.clear()
	delete(m.rooms, roomID)
	delete(m.timers, roomID)
	log.Printf("Room %s destroyed (%d operations, peak %d users)", roomID, ops, peak)

	if m.journal != nil {
		go m.recordClosed(roomID, ops, peak)
	}
}

func (m *Manager) recordOpened(roomID string) {
	if err := m.journal.RoomOpened(roomID); err != nil {
		log.Printf("Journal: failed to record open of room %s: %v", roomID, err)
	}
}

func (m *Manager) recordClosed(roomID string, ops, peak int) {
	if err := m.journal.RoomClosed(roomID, ops, peak); err != nil {
		log.Printf("Journal: failed to record close of room %s: %v", roomID, err)
	}
}

// Returns user counts for every live room
func (m *Manager) ActiveRooms() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[string]int, len(m.rooms))
	for id, r := range m.rooms {
		active[id] = r.UserCount()
	}
	return active
}

func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *Manager) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, r := range m.rooms {
		total += r.UserCount()
	}
	return total
}

// Cancels all pending destruction timers
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
