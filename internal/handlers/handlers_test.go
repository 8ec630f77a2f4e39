package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/database"
)

// fakeBackend serves canned pods, logs and exec output for handler tests.
type fakeBackend struct {
	pods    []cluster.Pod
	podsErr error
	logs    string
	logsErr error
	output  string
	exit    int
	execErr error
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Initialize(ctx context.Context) error { return nil }

func (b *fakeBackend) ResolvePods(ctx context.Context, namespace, prefix string) ([]cluster.Pod, error) {
	if b.podsErr != nil {
		return nil, b.podsErr
	}
	return b.pods, nil
}

func (b *fakeBackend) OpenLogStream(ctx context.Context, opts cluster.LogOptions) (io.ReadCloser, error) {
	if b.logsErr != nil {
		return nil, b.logsErr
	}
	return io.NopCloser(strings.NewReader(b.logs)), nil
}

func (b *fakeBackend) StartExec(ctx context.Context, pod cluster.Pod, command []string) (*cluster.ExecChannel, error) {
	if b.execErr != nil {
		return nil, b.execErr
	}
	deliveries := make(chan cluster.Delivery, 1)
	if b.output != "" {
		deliveries <- cluster.Delivery{Stream: cluster.Stdout, Data: []byte(b.output)}
	}
	close(deliveries)
	result := make(chan cluster.ExecResult, 1)
	result <- cluster.ExecResult{ExitCode: b.exit}
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

// withChiParam attaches a chi route parameter so handlers using URLParam see it.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeSSE parses an SSE body into its JSON data payloads.
func decodeSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			t.Fatalf("bad SSE payload %q: %v", payload, err)
		}
		records = append(records, rec)
	}
	return records
}

func errorDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body %q: %v", rr.Body.String(), err)
	}
	return body["detail"]
}
