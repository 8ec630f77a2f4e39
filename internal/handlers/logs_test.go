package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbext/podstream/internal/cluster"
)

func TestStreamPodLogs_NoBackend(t *testing.T) {
	cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/pods/web-0/logs", nil), "pod", "web-0")
	StreamPodLogs(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}

func TestStreamPodLogs_InvalidPattern(t *testing.T) {
	cluster.SetForTest(&fakeBackend{})
	defer cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/pods/web-0/logs?pattern=%5B", nil), "pod", "web-0")
	StreamPodLogs(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestStreamPodLogs_InvalidTail(t *testing.T) {
	cluster.SetForTest(&fakeBackend{})
	defer cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/pods/web-0/logs?tail=abc", nil), "pod", "web-0")
	StreamPodLogs(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestStreamPodLogs_StreamsLines(t *testing.T) {
	cluster.SetForTest(&fakeBackend{logs: "alpha\nbeta\n"})
	defer cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/pods/web-0/logs", nil), "pod", "web-0")
	StreamPodLogs(rr, req)

	records := decodeSSE(t, rr.Body.String())
	if len(records) != 3 {
		t.Fatalf("expected 2 lines plus terminal, got %d records", len(records))
	}
	if records[0]["content"] != "alpha" || records[0]["status"] != "streaming" {
		t.Errorf("unexpected first record: %v", records[0])
	}
	if records[2]["status"] != "completed" {
		t.Errorf("expected completed terminal, got %v", records[2])
	}
}

func TestStreamPodLogs_FiltersByPattern(t *testing.T) {
	cluster.SetForTest(&fakeBackend{logs: "ok\nERROR boom\nok\nERROR again\n"})
	defer cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(
		httptest.NewRequest(http.MethodGet, "/api/v1/pods/web-0/logs?pattern=ERROR&max_lines=1", nil),
		"pod", "web-0")
	StreamPodLogs(rr, req)

	records := decodeSSE(t, rr.Body.String())
	if len(records) != 2 {
		t.Fatalf("expected 1 match plus terminal, got %d records", len(records))
	}
	if records[0]["content"] != "ERROR boom" || records[0]["status"] != "filtered" {
		t.Errorf("unexpected match record: %v", records[0])
	}
	if records[0]["sequence_index"] != float64(0) {
		t.Errorf("expected sequence_index 0, got %v", records[0]["sequence_index"])
	}
	if records[1]["status"] != "completed" {
		t.Errorf("expected completed terminal, got %v", records[1])
	}
}

func TestStreamPodLogs_OpenFailureIsErrorRecord(t *testing.T) {
	cluster.SetForTest(&fakeBackend{logsErr: cluster.ErrNotFound})
	defer cluster.ResetForTest()

	rr := httptest.NewRecorder()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/pods/gone/logs", nil), "pod", "gone")
	StreamPodLogs(rr, req)

	records := decodeSSE(t, rr.Body.String())
	if len(records) != 1 {
		t.Fatalf("expected single error record, got %d", len(records))
	}
	if records[0]["status"] != "error" {
		t.Errorf("expected error status, got %v", records[0]["status"])
	}
}
