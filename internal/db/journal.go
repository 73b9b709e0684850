package db

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal records room lifecycle activity for the stats API. It is
// observability metadata only: the live sync path never reads it and
// canvas history cannot be reconstructed from it.
type Journal struct {
	db *sql.DB
}

// One room session: from first reference to destruction
type Activity struct {
	ID             int64      `json:"id"`
	RoomID         string     `json:"room_id"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	PeakUsers      int        `json:"peak_users"`
	OperationCount int        `json:"operation_count"`
}

func Open(dbPath string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Printf("Journal initialized at %s", dbPath)
	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS room_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		opened_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		closed_at DATETIME,
		peak_users INTEGER DEFAULT 0,
		operation_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_room_activity_room_id ON room_activity(room_id);
	CREATE INDEX IF NOT EXISTS idx_room_activity_opened_at ON room_activity(opened_at DESC);
	`

	_, err := db.Exec(schema)
	return err
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RoomOpened starts a new activity row for the room
func (j *Journal) RoomOpened(roomID string) error {
	_, err := j.db.Exec(
		"INSERT INTO room_activity (room_id) VALUES (?)",
		roomID,
	)
	return err
}

// RoomClosed finalizes the room's open activity row with its lifetime
// totals. A close without a matching open row is a no-op.
func (j *Journal) RoomClosed(roomID string, operations, peakUsers int) error {
	_, err := j.db.Exec(`
		UPDATE room_activity
		SET closed_at = CURRENT_TIMESTAMP, operation_count = ?, peak_users = ?
		WHERE id = (
			SELECT id FROM room_activity
			WHERE room_id = ? AND closed_at IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
	`, operations, peakUsers, roomID)
	return err
}

// RecentActivity lists room sessions, newest first
func (j *Journal) RecentActivity(limit, offset int) ([]Activity, error) {
	rows, err := j.db.Query(`
		SELECT id, room_id, opened_at, closed_at, peak_users, operation_count
		FROM room_activity
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var closedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.RoomID, &a.OpenedAt, &closedAt, &a.PeakUsers, &a.OperationCount); err != nil {
			return nil, err
		}
		if closedAt.Valid {
			t := closedAt.Time
			a.ClosedAt = &t
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Stats

func (j *Journal) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var sessionCount int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM room_activity").Scan(&sessionCount); err != nil {
		return nil, err
	}
	stats["room_sessions"] = sessionCount

	var distinctRooms int
	if err := j.db.QueryRow("SELECT COUNT(DISTINCT room_id) FROM room_activity").Scan(&distinctRooms); err != nil {
		return nil, err
	}
	stats["distinct_rooms"] = distinctRooms

	var totalOperations int
	if err := j.db.QueryRow("SELECT COALESCE(SUM(operation_count), 0) FROM room_activity").Scan(&totalOperations); err != nil {
		return nil, err
	}
	stats["total_operations"] = totalOperations

	return stats, nil
}
