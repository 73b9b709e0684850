package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/drawbridge-app/drawbridge/internal/api"
	"github.com/drawbridge-app/drawbridge/internal/db"
	"github.com/drawbridge-app/drawbridge/internal/relay"
	"github.com/drawbridge-app/drawbridge/internal/room"
	"github.com/drawbridge-app/drawbridge/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbPath := os.Getenv("DRAWBRIDGE_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/drawbridge.db"
	}

	grace := room.DefaultGracePeriod
	if s := os.Getenv("DRAWBRIDGE_GRACE_PERIOD"); s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil || secs <= 0 {
			log.Fatalf("Invalid DRAWBRIDGE_GRACE_PERIOD: %q", s)
		}
		grace = time.Duration(secs) * time.Second
	}

	journal, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize journal: %v", err)
	}
	defer journal.Close()

	manager := room.NewManager(grace, journal)
	handler := relay.NewHandler(manager)
	apiHandler := api.New(handler, manager, journal)

	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(handler, w, r)
	})

	mux.HandleFunc("/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/stats", apiHandler.StatsHandler)
	mux.HandleFunc("/api/rooms", apiHandler.RoomsRouter)
	mux.HandleFunc("/api/rooms/", apiHandler.RoomsRouter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: corsMiddleware(mux),
	}

	go func() {
		log.Printf("Drawbridge server starting on :%s", port)
		log.Printf("Journal: %s, grace period: %v", dbPath, grace)
		log.Println("Endpoints:")
		log.Println("  - WebSocket: /ws")
		log.Println("  - Health:    GET /health")
		log.Println("  - Stats:     GET /api/stats")
		log.Println("  - Rooms:     GET /api/rooms")
		log.Println("  - Room:      GET /api/rooms/{id}")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe: ", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	manager.Shutdown()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
