package scheduler

import (
	"context"
	"io"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/database"
)

type stubBackend struct {
	pods []cluster.Pod
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Initialize(ctx context.Context) error { return nil }

func (b *stubBackend) ResolvePods(ctx context.Context, namespace, prefix string) ([]cluster.Pod, error) {
	return b.pods, nil
}

func (b *stubBackend) OpenLogStream(ctx context.Context, opts cluster.LogOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (b *stubBackend) StartExec(ctx context.Context, pod cluster.Pod, command []string) (*cluster.ExecChannel, error) {
	deliveries := make(chan cluster.Delivery, 1)
	deliveries <- cluster.Delivery{Stream: cluster.Stdout, Data: []byte("done\n")}
	close(deliveries)
	result := make(chan cluster.ExecResult, 1)
	result <- cluster.ExecResult{ExitCode: 0}
	return &cluster.ExecChannel{Deliveries: deliveries, Result: result}, nil
}

func setupTestDB(t *testing.T) func() {
	t.Helper()
	var err error
	database.DB, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test DB: %v", err)
	}
	if err := database.DB.AutoMigrate(&database.Execution{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return func() {
		sqlDB, _ := database.DB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

func TestRegister_RejectsBadSchedule(t *testing.T) {
	s := New(&stubBackend{})
	err := s.Register([]config.Task{
		{Name: "bad", Command: "true", Prefix: "p", Schedule: "not a schedule"},
	})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRun_RecordsExecutionHistory(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	config.Cfg.ExecShell = "/bin/sh"
	config.Cfg.Namespace = "default"

	backend := &stubBackend{pods: []cluster.Pod{
		{Name: "worker-0", Namespace: "dev", Ready: true},
	}}
	s := New(backend)
	s.run(config.Task{Name: "nightly", Command: "echo done", Namespace: "dev", Prefix: "worker"})

	var execs []database.Execution
	if err := database.DB.Find(&execs).Error; err != nil {
		t.Fatalf("load executions: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	exec := execs[0]
	if exec.TaskName != "nightly" {
		t.Errorf("task name not recorded: %q", exec.TaskName)
	}
	if exec.Status != "completed" {
		t.Errorf("expected completed, got %q", exec.Status)
	}
	if exec.Pod != "worker-0" {
		t.Errorf("pod not recorded: %q", exec.Pod)
	}
	if exec.FinishedAt == nil {
		t.Error("finished_at not set")
	}
}

func TestRun_NoPodsRecordsError(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	config.Cfg.ExecShell = "/bin/sh"
	config.Cfg.Namespace = "default"

	s := New(&stubBackend{})
	s.run(config.Task{Name: "orphan", Command: "true", Prefix: "missing"})

	var exec database.Execution
	if err := database.DB.First(&exec, "task_name = ?", "orphan").Error; err != nil {
		t.Fatalf("load execution: %v", err)
	}
	if exec.Status != "error" {
		t.Errorf("expected error status, got %q", exec.Status)
	}
}
