package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Tk21111/sketchroom/db"
	"github.com/Tk21111/sketchroom/ws"
)

const (
	defaultPresenceLimit = 50
	maxPresenceLimit     = 500
)

type roomsResponse struct {
	Live    []ws.RoomInfo `json:"live"`
	History []db.Room     `json:"history,omitempty"`
}

// GetRooms lists the rooms currently open on h and, when the presence log is
// enabled, every room it has seen.
func GetRooms(h *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}

		resp := roomsResponse{Live: h.Rooms()}

		history, err := db.GetRooms()
		switch {
		case err == nil:
			resp.History = history
		case !errors.Is(err, db.ErrNotInitialized):
			errorHelper(w, r, err)
			return
		}

		writeJSON(w, r, resp)
	}
}

// GetPresence returns the newest presence rows of a room, newest first.
func GetPresence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}

		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "roomId required", http.StatusBadRequest)
			return
		}

		limit := defaultPresenceLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxPresenceLimit)
		}

		events, err := db.GetPresence(roomID, limit)
		if err != nil {
			errorHelper(w, r, err)
			return
		}
		writeJSON(w, r, events)
	}
}

// Routes mounts the API on mux.
func Routes(mux *http.ServeMux, h *ws.Hub) {
	mux.Handle("/api/rooms", GetRooms(h))
	mux.Handle("/api/presence", GetPresence())
}
