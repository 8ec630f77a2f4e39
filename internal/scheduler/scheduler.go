// Package scheduler runs manifest tasks on their cron schedules, draining
// each run's record stream into the process log and the execution history.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/database"
	"github.com/dbext/podstream/internal/logutil"
	"github.com/dbext/podstream/internal/stream"
)

type Scheduler struct {
	cron    *cron.Cron
	backend cluster.Backend
}

func New(backend cluster.Backend) *Scheduler {
	return &Scheduler{cron: cron.New(), backend: backend}
}

// Register adds every scheduled task from the manifest.
func (s *Scheduler) Register(tasks []config.Task) error {
	for _, t := range tasks {
		task := t
		if _, err := s.cron.AddFunc(task.Schedule, func() { s.run(task) }); err != nil {
			return fmt.Errorf("task %q: bad schedule %q: %w", task.Name, task.Schedule, err)
		}
		log.Printf("Scheduled task %q (%s)", logutil.SanitizeForLog(task.Name), task.Schedule)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(task config.Task) {
	namespace := task.Namespace
	if namespace == "" {
		namespace = config.Cfg.Namespace
	}

	id := uuid.New().String()
	exec := &database.Execution{
		ID:        id,
		TaskName:  task.Name,
		Command:   task.Command,
		Namespace: namespace,
		Prefix:    task.Prefix,
	}
	if err := database.RecordStart(exec); err != nil {
		log.Printf("[scheduler] task %s: record start: %v", logutil.SanitizeForLog(task.Name), err)
	}

	command := []string{config.Cfg.ExecShell, "-c", task.Command}
	es := stream.NewExecStream(s.backend, namespace, task.Prefix, command)
	defer es.Close()

	ctx := context.Background()
	for {
		rec, ok := es.Next(ctx)
		if !ok {
			return
		}
		switch {
		case rec.Terminal():
			code := 0
			if rec.ExitCode != nil {
				code = *rec.ExitCode
			}
			log.Printf("[scheduler] task %s finished: %s (%s)",
				logutil.SanitizeForLog(task.Name), rec.State, rec.Detail)
			if err := database.RecordFinish(id, es.Pod(), string(rec.State), rec.Detail, code); err != nil {
				log.Printf("[scheduler] task %s: record finish: %v", logutil.SanitizeForLog(task.Name), err)
			}
		case rec.Stderr != "":
			log.Printf("[scheduler] task %s stderr: %s",
				logutil.SanitizeForLog(task.Name), logutil.SanitizeForLog(strings.TrimRight(rec.Stderr, "\n")))
		default:
			log.Printf("[scheduler] task %s: %s",
				logutil.SanitizeForLog(task.Name), logutil.SanitizeForLog(strings.TrimRight(rec.Content, "\n")))
		}
	}
}
