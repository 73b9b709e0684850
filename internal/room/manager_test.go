package room

import (
	"sync"
	"testing"
	"time"
)

type mockJournal struct {
	mu     sync.Mutex
	opened []string
	closed []string
}

func (m *mockJournal) RoomOpened(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, roomID)
	return nil
}

func (m *mockJournal) RoomClosed(roomID string, operations, peakUsers int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, roomID)
	return nil
}

func (m *mockJournal) closedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.closed)
}

func TestJoinCreatesRoom(t *testing.T) {
	m := NewManager(time.Minute, nil)

	r, user := m.Join("r1", "u1", "Alice")
	if r == nil {
		t.Fatal("Join should return the room")
	}
	if user.ID != "u1" || user.Name != "Alice" {
		t.Errorf("Unexpected user: %+v", user)
	}
	if user.Color == "" {
		t.Error("Joining user should be assigned a color")
	}

	if _, ok := m.Get("r1"); !ok {
		t.Error("Room should exist after join")
	}
	if m.RoomCount() != 1 {
		t.Errorf("Expected 1 room, got %d", m.RoomCount())
	}
}

func TestJoinersGetDistinctColors(t *testing.T) {
	m := NewManager(time.Minute, nil)

	_, a := m.Join("r2", "u1", "")
	_, b := m.Join("r2", "u2", "")

	if a.Color == b.Color {
		t.Errorf("Sequential joiners should get distinct colors, both got %s", a.Color)
	}
}

func TestLeaveUnknownIsNoOp(t *testing.T) {
	m := NewManager(time.Minute, nil)

	if _, ok := m.Leave("nope", "u1"); ok {
		t.Error("Leave on unknown room should report false")
	}

	m.Join("r1", "u1", "")
	if _, ok := m.Leave("r1", "ghost"); ok {
		t.Error("Leave of unknown user should report false")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	m := NewManager(time.Minute, nil)
	m.Join("r1", "u1", "")

	if _, ok := m.Leave("r1", "u1"); !ok {
		t.Fatal("First leave should succeed")
	}
	if _, ok := m.Leave("r1", "u1"); ok {
		t.Error("Second leave should be a no-op")
	}
}

func TestRoomDestroyedAfterGracePeriod(t *testing.T) {
	journal := &mockJournal{}
	m := NewManager(20*time.Millisecond, journal)

	r, _ := m.Join("r1", "u1", "")
	r.Append(makeTestOp("op1"))
	m.Leave("r1", "u1")

	// Still draining inside the grace period
	if _, ok := m.Get("r1"); !ok {
		t.Fatal("Room should survive until the grace period elapses")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := m.Get("r1"); ok {
		t.Error("Room should be destroyed after the grace period")
	}
	if journal.closedCount() != 1 {
		t.Errorf("Expected 1 journal close record, got %d", journal.closedCount())
	}
}

func TestRejoinCancelsDestruction(t *testing.T) {
	m := NewManager(30*time.Millisecond, nil)

	r1, _ := m.Join("r1", "u1", "")
	r1.Append(makeTestOp("op1"))
	m.Leave("r1", "u1")

	time.Sleep(10 * time.Millisecond)
	m.Join("r1", "u2", "")

	time.Sleep(60 * time.Millisecond)

	r, ok := m.Get("r1")
	if !ok {
		t.Fatal("Room with a user should never be destroyed")
	}
	if r.OperationCount() != 1 {
		t.Errorf("Room history should survive a rejoin, got %d operations", r.OperationCount())
	}
}

func TestStaleTimerDoesNotDestroyRefilledRoom(t *testing.T) {
	m := NewManager(25*time.Millisecond, nil)

	// Drain, refill, drain again: only the second drain's timer counts
	m.Join("r1", "u1", "")
	m.Leave("r1", "u1")
	time.Sleep(10 * time.Millisecond)
	m.Join("r1", "u2", "")
	m.Leave("r1", "u2")

	time.Sleep(60 * time.Millisecond)
	if _, ok := m.Get("r1"); ok {
		t.Error("Room empty past the grace period should be destroyed")
	}
}

func TestDestroyedRoomRecreatedEmpty(t *testing.T) {
	m := NewManager(15*time.Millisecond, nil)

	r, _ := m.Join("r2", "u1", "")
	r.Append(makeTestOp("op1"))
	m.Join("r2", "u2", "")
	m.Leave("r2", "u1")
	m.Leave("r2", "u2")

	time.Sleep(50 * time.Millisecond)

	fresh, _ := m.Join("r2", "u3", "")
	if fresh.OperationCount() != 0 {
		t.Errorf("Recreated room should start empty, got %d operations", fresh.OperationCount())
	}
}

func TestActiveRoomsAndCounts(t *testing.T) {
	m := NewManager(time.Minute, nil)

	m.Join("a", "u1", "")
	m.Join("a", "u2", "")
	m.Join("b", "u3", "")

	active := m.ActiveRooms()
	if active["a"] != 2 || active["b"] != 1 {
		t.Errorf("Unexpected active rooms: %v", active)
	}
	if m.UserCount() != 3 {
		t.Errorf("Expected 3 users total, got %d", m.UserCount())
	}
}

func TestShutdownCancelsTimers(t *testing.T) {
	m := NewManager(15*time.Millisecond, nil)

	m.Join("r1", "u1", "")
	m.Leave("r1", "u1")
	m.Shutdown()

	time.Sleep(40 * time.Millisecond)
	if _, ok := m.Get("r1"); !ok {
		t.Error("Shutdown should cancel pending destruction")
	}
}
