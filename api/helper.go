package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Tk21111/sketchroom/db"
	"github.com/Tk21111/sketchroom/internal/logx"
)

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.From(r.Context()).Warn("encode response", zap.Error(err))
	}
}

// errorHelper maps err to a status code and writes it.
func errorHelper(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrNotInitialized):
		http.Error(w, "presence log disabled", http.StatusServiceUnavailable)
	default:
		logx.From(r.Context()).Error("api", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
