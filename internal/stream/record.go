// Package stream turns the cluster backends' chunked remote I/O into
// pull-driven sequences of status records.
//
// Every producer (log streaming, filtered log retrieval, command execution)
// yields the same record type and follows the same lifecycle: zero or more
// data records followed by exactly one terminal record (completed or error),
// after which the sequence is exhausted. Consumers advance a sequence by
// calling Next; no work happens between calls.
package stream

import (
	"context"
	"time"
)

// State tags a record's position in the producer lifecycle.
type State string

const (
	StateStreaming State = "streaming" // raw log line
	StateFiltered  State = "filtered"  // log line accepted by a filter
	StateRunning   State = "running"   // exec output chunk
	StateCompleted State = "completed" // terminal, success
	StateError     State = "error"     // terminal, failure
)

// Source identifies the workload a record was produced from. It is fixed for
// the life of a single producer invocation.
type Source struct {
	Pod       string `json:"pod,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Container string `json:"container,omitempty"`
}

// Record is the single output unit of every producer. Records are immutable
// once yielded; producers keep no reference to emitted records.
type Record struct {
	Content   string  `json:"content,omitempty"`
	Timestamp float64 `json:"timestamp"`
	Source
	Sequence *int   `json:"sequence_index,omitempty"`
	State    State  `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Terminal reports whether the record ends its sequence.
func (r Record) Terminal() bool {
	return r.State == StateCompleted || r.State == StateError
}

// Stream is a lazy, pull-driven sequence of records. Next blocks until the
// next record is available and returns ok=false once the sequence is
// exhausted (the terminal record has already been returned). Close releases
// the underlying remote stream or channel; it must be called when a stream
// is abandoned before exhaustion and is safe to call more than once.
type Stream interface {
	Next(ctx context.Context) (Record, bool)
	Close() error
}

// now returns the wall clock as unix seconds with sub-second precision.
func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func streamingRecord(src Source, line string) Record {
	return Record{
		Content:   line,
		Timestamp: now(),
		Source:    src,
		State:     StateStreaming,
	}
}

func completedRecord(src Source, detail string) Record {
	return Record{
		Timestamp: now(),
		Source:    src,
		State:     StateCompleted,
		Detail:    detail,
	}
}
