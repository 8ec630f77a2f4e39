package handlers

import (
	"net/http"
	"strconv"

	"github.com/dbext/podstream/internal/database"
)

// ListExecutions returns recent execution metadata, newest first.
func ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
		limit = v
	}

	execs, err := database.RecentExecutions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": execs})
}
