package db

import (
	"path/filepath"
	"testing"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRoomOpenAndClose(t *testing.T) {
	j := setupTestJournal(t)

	if err := j.RoomOpened("room-1"); err != nil {
		t.Fatalf("RoomOpened failed: %v", err)
	}

	activities, err := j.RecentActivity(10, 0)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("Expected 1 activity row, got %d", len(activities))
	}
	if activities[0].RoomID != "room-1" {
		t.Errorf("Expected room-1, got %s", activities[0].RoomID)
	}
	if activities[0].ClosedAt != nil {
		t.Error("Open room should have no closed_at")
	}

	if err := j.RoomClosed("room-1", 42, 3); err != nil {
		t.Fatalf("RoomClosed failed: %v", err)
	}

	activities, err = j.RecentActivity(10, 0)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if activities[0].ClosedAt == nil {
		t.Fatal("Closed room should have closed_at set")
	}
	if activities[0].OperationCount != 42 {
		t.Errorf("Expected 42 operations, got %d", activities[0].OperationCount)
	}
	if activities[0].PeakUsers != 3 {
		t.Errorf("Expected peak of 3 users, got %d", activities[0].PeakUsers)
	}
}

func TestCloseWithoutOpenIsNoOp(t *testing.T) {
	j := setupTestJournal(t)

	if err := j.RoomClosed("never-opened", 1, 1); err != nil {
		t.Fatalf("RoomClosed should not error on missing row: %v", err)
	}

	activities, err := j.RecentActivity(10, 0)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("Expected no activity rows, got %d", len(activities))
	}
}

func TestCloseFinalizesLatestOpenSession(t *testing.T) {
	j := setupTestJournal(t)

	// Same room opened twice (destroyed and recreated)
	j.RoomOpened("room-1")
	j.RoomClosed("room-1", 5, 1)
	j.RoomOpened("room-1")
	j.RoomClosed("room-1", 9, 2)

	activities, err := j.RecentActivity(10, 0)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("Expected 2 activity rows, got %d", len(activities))
	}
	// Newest first
	if activities[0].OperationCount != 9 || activities[1].OperationCount != 5 {
		t.Errorf("Sessions closed out of order: %+v", activities)
	}
}

func TestRecentActivityPaging(t *testing.T) {
	j := setupTestJournal(t)

	for _, id := range []string{"a", "b", "c"} {
		j.RoomOpened(id)
	}

	page, err := j.RecentActivity(2, 0)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(page))
	}
	if page[0].RoomID != "c" || page[1].RoomID != "b" {
		t.Errorf("Expected newest first, got %s, %s", page[0].RoomID, page[1].RoomID)
	}

	page, err = j.RecentActivity(2, 2)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(page) != 1 || page[0].RoomID != "a" {
		t.Errorf("Unexpected second page: %+v", page)
	}
}

func TestGetStats(t *testing.T) {
	j := setupTestJournal(t)

	j.RoomOpened("room-1")
	j.RoomClosed("room-1", 10, 2)
	j.RoomOpened("room-1")
	j.RoomOpened("room-2")
	j.RoomClosed("room-2", 5, 1)

	stats, err := j.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats["room_sessions"] != 3 {
		t.Errorf("Expected 3 room sessions, got %v", stats["room_sessions"])
	}
	if stats["distinct_rooms"] != 2 {
		t.Errorf("Expected 2 distinct rooms, got %v", stats["distinct_rooms"])
	}
	if stats["total_operations"] != 15 {
		t.Errorf("Expected 15 total operations, got %v", stats["total_operations"])
	}
}
