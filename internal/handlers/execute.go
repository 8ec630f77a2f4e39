package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/database"
	"github.com/dbext/podstream/internal/logutil"
	"github.com/dbext/podstream/internal/stream"
)

// Tasks is the manifest loaded at startup; nil when none was configured.
var Tasks *config.Manifest

type executeRequest struct {
	Command   string `json:"command"`
	Namespace string `json:"namespace"`
	Prefix    string `json:"prefix"`
	Task      string `json:"task"`
}

// resolve fills the request from a named manifest task and applies the
// namespace default.
func (req *executeRequest) resolve() (string, bool) {
	if req.Task != "" {
		task, ok := Tasks.Find(req.Task)
		if !ok {
			return "Unknown task: " + req.Task, false
		}
		req.Command = task.Command
		req.Prefix = task.Prefix
		if req.Namespace == "" {
			req.Namespace = task.Namespace
		}
	}
	if req.Command == "" {
		return "Command is required", false
	}
	if req.Prefix == "" {
		return "Prefix is required", false
	}
	if req.Namespace == "" {
		req.Namespace = config.Cfg.Namespace
	}
	if req.Namespace == "" {
		return "Namespace is required", false
	}
	return "", true
}

// ExecuteScript runs a script on a worker pod resolved by prefix and streams
// its output as SSE records. The execution's metadata is persisted; its
// output is not.
func ExecuteScript(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if detail, ok := req.resolve(); !ok {
		writeError(w, http.StatusBadRequest, detail)
		return
	}

	backend := cluster.Get()
	if backend == nil {
		writeError(w, http.StatusServiceUnavailable, "No cluster backend available")
		return
	}

	id := uuid.New().String()
	log.Printf("Execute %s: prefix=%s namespace=%s", id,
		logutil.SanitizeForLog(req.Prefix), logutil.SanitizeForLog(req.Namespace))

	exec := &database.Execution{
		ID:        id,
		TaskName:  req.Task,
		Command:   req.Command,
		Namespace: req.Namespace,
		Prefix:    req.Prefix,
	}
	if err := database.RecordStart(exec); err != nil {
		log.Printf("Execute %s: record start: %v", id, err)
	}

	command := []string{config.Cfg.ExecShell, "-c", req.Command}
	es := stream.NewExecStream(backend, req.Namespace, req.Prefix, command)

	streamRecords(w, r, es, func(rec stream.Record) {
		code := 0
		if rec.ExitCode != nil {
			code = *rec.ExitCode
		}
		if err := database.RecordFinish(id, es.Pod(), string(rec.State), rec.Detail, code); err != nil {
			log.Printf("Execute %s: record finish: %v", id, err)
		}
	})
}
