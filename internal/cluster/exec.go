package cluster

import "context"

// StdStream tags which output stream a delivery belongs to.
type StdStream int

const (
	Stdout StdStream = iota
	Stderr
)

func (s StdStream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Delivery is one chunk of exec output as it arrived from the remote
// channel. Deliveries of the same stream are never reordered; interleaving
// between streams is whatever order the remote channel produced.
type Delivery struct {
	Stream StdStream
	Data   []byte
}

// ExecResult carries the deferred outcome of an execution channel. Err is
// non-nil only for channel-level failures; a command that ran to completion
// with a nonzero status has Err == nil and ExitCode != 0.
type ExecResult struct {
	ExitCode int
	Err      error
}

// ExecChannel exposes a running remote command. Deliveries is closed once
// both output streams close; exactly one ExecResult is sent on Result after
// that.
type ExecChannel struct {
	Deliveries <-chan Delivery
	Result     <-chan ExecResult
}

// streamWriter forwards Write calls as tagged deliveries. Both backends hand
// one writer per output stream to their transport, so per-stream ordering is
// the transport's own write ordering and cross-stream interleaving is the
// channel send order.
type streamWriter struct {
	stream StdStream
	ch     chan<- Delivery
	ctx    context.Context
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// The transport reuses p after Write returns.
	data := make([]byte, len(p))
	copy(data, p)
	select {
	case w.ch <- Delivery{Stream: w.stream, Data: data}:
		return len(p), nil
	case <-w.ctx.Done():
		return 0, w.ctx.Err()
	}
}
