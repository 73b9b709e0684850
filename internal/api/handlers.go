package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drawbridge-app/drawbridge/internal/db"
	"github.com/drawbridge-app/drawbridge/internal/relay"
	"github.com/drawbridge-app/drawbridge/internal/room"
)

type API struct {
	handler *relay.Handler
	manager *room.Manager
	journal *db.Journal
}

func New(handler *relay.Handler, manager *room.Manager, journal *db.Journal) *API {
	return &API{
		handler: handler,
		manager: manager,
		journal: journal,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":    a.manager.RoomCount(),
		"active_users":    a.manager.UserCount(),
		"active_sessions": a.handler.SessionCount(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}

	if a.journal != nil {
		journalStats, err := a.journal.GetStats()
		if err == nil {
			stats["room_sessions"] = journalStats["room_sessions"]
			stats["distinct_rooms"] = journalStats["distinct_rooms"]
			stats["total_operations"] = journalStats["total_operations"]
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID             string             `json:"id"`
	ActiveUsers    int                `json:"active_users"`
	OperationCount int                `json:"operation_count"`
	Users          []RoomUserResponse `json:"users,omitempty"`
}

type RoomUserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDrawing bool   `json:"isDrawing"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	response := map[string]interface{}{
		"active": a.manager.ActiveRooms(),
		"limit":  limit,
		"offset": offset,
	}

	if a.journal != nil {
		history, err := a.journal.RecentActivity(limit, offset)
		if err != nil {
			errorResponse(w, http.StatusInternalServerError, "Failed to list room history")
			return
		}
		if history == nil {
			history = []db.Activity{}
		}
		response["history"] = history
	}

	jsonResponse(w, http.StatusOK, response)
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Extract room ID from path: /api/rooms/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	roomID := strings.TrimSuffix(path, "/")

	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	rm, ok := a.manager.Get(roomID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	users := rm.Users()
	userResponses := make([]RoomUserResponse, len(users))
	for i, u := range users {
		userResponses[i] = RoomUserResponse{
			ID:        u.ID,
			Name:      u.Name,
			Color:     u.Color,
			IsDrawing: u.IsDrawing,
		}
	}

	jsonResponse(w, http.StatusOK, RoomResponse{
		ID:             rm.ID,
		ActiveUsers:    rm.UserCount(),
		OperationCount: rm.OperationCount(),
		Users:          userResponses,
	})
}

func (a *API) RoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms")

	// /api/rooms or /api/rooms/
	if path == "" || path == "/" {
		a.ListRoomsHandler(w, r)
		return
	}

	// /api/rooms/{id}
	a.GetRoomHandler(w, r)
}
