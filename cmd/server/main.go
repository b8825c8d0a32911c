package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"midnight-chase/internal/api"
	"midnight-chase/internal/config"
	"midnight-chase/internal/game"
	"midnight-chase/internal/metrics"
	"midnight-chase/internal/room"
	"midnight-chase/internal/session"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🌙 ================================")
	log.Println("🌙  MIDNIGHT CHASE - GAME SERVER")
	log.Println("🌙 ================================")

	appConfig := config.Load()
	limits := appConfig.Limits
	log.Printf("🛡️ Resource limits: %d rooms, %d players/room, %d sockets (%d per IP)",
		limits.MaxRooms, limits.MaxPlayersPerRoom, limits.MaxWSConnections, limits.MaxWSPerIP)
	log.Printf("⏱️ Tick: %v, round %02d:00 -> midnight", game.TickInterval, game.StartMinutes/60)

	// Audit log stays nil-safe when disabled
	events := game.NewEventLog()
	if appConfig.EventLogPath != "" {
		if err := events.Start(appConfig.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", appConfig.EventLogPath)
		}
	}

	stopStats := make(chan struct{})
	go publishEventLogStats(events, stopStats)

	debugServer := api.StartDebugServer(appConfig.Debug)

	registry := room.NewRegistry(room.Config{
		MaxRooms:          limits.MaxRooms,
		MaxPlayersPerRoom: limits.MaxPlayersPerRoom,
		Events:            events,
	})
	gateway := session.NewGateway(registry)
	server := api.NewServer(registry, gateway, appConfig)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(":" + strconv.Itoa(appConfig.Server.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			log.Printf("❌ Server failed: %v", err)
		}
	}

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	log.Printf("🏠 Closing %d rooms", registry.Count())
	registry.Close()
	close(stopStats)
	events.Stop()
	log.Printf("📝 Event log closed: %v", events.GetStats())
	if debugServer != nil {
		if err := debugServer.Shutdown(ctx); err != nil {
			log.Printf("⚠️ Debug server shutdown: %v", err)
		}
	}
	log.Println("👋 Goodbye!")
}

// publishEventLogStats mirrors the audit log counters into Prometheus.
func publishEventLogStats(events *game.EventLog, stop <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateEventLogStats(events.GetTotalCount(), events.GetDroppedCount())
		case <-stop:
			return
		}
	}
}
