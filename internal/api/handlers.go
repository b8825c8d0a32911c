package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"midnight-chase/internal/protocol"
	"midnight-chase/internal/render"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"rooms":    h.rooms.Count(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"requests": h.rateLimiter.GetStats(),
	})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.rooms.Rooms())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeRoomCode(chi.URLParam(r, "code"))
	snap, ok := h.rooms.Snapshot(code)
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleMinimap(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeRoomCode(chi.URLParam(r, "code"))
	snap, ok := h.rooms.Snapshot(code)
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	size := render.DefaultSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, "Invalid size", http.StatusBadRequest)
			return
		}
		size = n
	}

	img, err := render.Minimap(snap, size)
	if err != nil {
		log.Printf("❌ Minimap for room %s failed: %v", code, err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
