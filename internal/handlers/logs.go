package handlers

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/stream"
)

const defaultFilterMaxLines = 100

// StreamPodLogs streams a container's log as SSE records. With pattern or
// max_lines set the stream goes through the line filter and emits filtered,
// sequence-numbered records; otherwise raw streaming records.
func StreamPodLogs(w http.ResponseWriter, r *http.Request) {
	pod := chi.URLParam(r, "pod")
	if pod == "" {
		writeError(w, http.StatusBadRequest, "Pod is required")
		return
	}

	query := r.URL.Query()

	namespace := query.Get("namespace")
	if namespace == "" {
		namespace = config.Cfg.Namespace
	}

	opts := cluster.LogOptions{
		Pod:       pod,
		Namespace: namespace,
		Container: query.Get("container"),
	}

	if t := query.Get("tail"); t != "" {
		v, err := strconv.ParseInt(t, 10, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "Invalid tail value")
			return
		}
		opts.TailLines = &v
	}
	if query.Get("follow") == "true" {
		opts.Follow = true
	}

	var pattern *regexp.Regexp
	if p := query.Get("pattern"); p != "" {
		var err error
		pattern, err = regexp.Compile(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid pattern: "+err.Error())
			return
		}
	}

	maxLines := 0
	if m := query.Get("max_lines"); m != "" {
		v, err := strconv.Atoi(m)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "Invalid max_lines value")
			return
		}
		maxLines = v
	}

	backend := cluster.Get()
	if backend == nil {
		writeError(w, http.StatusServiceUnavailable, "No cluster backend available")
		return
	}

	var s stream.Stream = stream.NewLogStream(backend, opts)
	if pattern != nil || maxLines > 0 {
		if maxLines == 0 {
			maxLines = defaultFilterMaxLines
		}
		s = stream.NewFilterStream(s, pattern, maxLines)
	}

	streamRecords(w, r, s, nil)
}
