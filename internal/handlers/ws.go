package handlers

import (
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/database"
	"github.com/dbext/podstream/internal/stream"
)

// ExecuteScriptWS is the websocket counterpart of ExecuteScript. The client
// sends one request message, then receives one JSON message per record until
// the terminal record closes the connection.
func ExecuteScriptWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("Execute ws: accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var req executeRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "Invalid request body")
		return
	}
	if detail, ok := req.resolve(); !ok {
		conn.Close(websocket.StatusPolicyViolation, detail)
		return
	}

	backend := cluster.Get()
	if backend == nil {
		conn.Close(websocket.StatusInternalError, "No cluster backend available")
		return
	}

	id := uuid.New().String()
	exec := &database.Execution{
		ID:        id,
		TaskName:  req.Task,
		Command:   req.Command,
		Namespace: req.Namespace,
		Prefix:    req.Prefix,
	}
	if err := database.RecordStart(exec); err != nil {
		log.Printf("Execute ws %s: record start: %v", id, err)
	}

	command := []string{config.Cfg.ExecShell, "-c", req.Command}
	es := stream.NewExecStream(backend, req.Namespace, req.Prefix, command)
	defer es.Close()

	for {
		rec, ok := es.Next(ctx)
		if !ok {
			break
		}
		if rec.Terminal() {
			code := 0
			if rec.ExitCode != nil {
				code = *rec.ExitCode
			}
			if err := database.RecordFinish(id, es.Pod(), string(rec.State), rec.Detail, code); err != nil {
				log.Printf("Execute ws %s: record finish: %v", id, err)
			}
		}
		if err := wsjson.Write(ctx, conn, rec); err != nil {
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
