package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dbext/podstream/internal/stream"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// sseWriter wraps a streaming HTTP response. Headers are flushed on creation
// so the client's event source connects before the first record arrives.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// streamRecords drains a record stream onto an SSE response. onTerminal, if
// set, observes the terminal record (used to persist execution outcomes).
func streamRecords(w http.ResponseWriter, r *http.Request, s stream.Stream, onTerminal func(stream.Record)) {
	defer s.Close()

	sse, ok := newSSEWriter(w)
	if !ok {
		return
	}

	ctx := r.Context()
	for {
		rec, ok := s.Next(ctx)
		if !ok {
			return
		}
		if rec.Terminal() && onTerminal != nil {
			onTerminal(rec)
		}
		if err := sse.send(rec); err != nil {
			return
		}
	}
}
