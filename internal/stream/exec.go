package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbext/podstream/internal/cluster"
)

// ExecStream runs a command on a worker pod resolved by name prefix and
// multiplexes its stdout, stderr and exit code into one record sequence.
// Resolution and channel setup are deferred to the first Next call, so every
// failure mode surfaces as the sequence's terminal error record.
type ExecStream struct {
	backend   cluster.Backend
	namespace string
	prefix    string
	command   []string
	src       Source

	ch      *cluster.ExecChannel
	cancel  context.CancelFunc
	started bool
	done    bool

	closeOnce sync.Once
}

// NewExecStream prepares a command execution against the first ready worker
// whose identity matches prefix in namespace.
func NewExecStream(backend cluster.Backend, namespace, prefix string, command []string) *ExecStream {
	return &ExecStream{
		backend:   backend,
		namespace: namespace,
		prefix:    prefix,
		command:   command,
		src:       Source{Namespace: namespace},
	}
}

// Pod returns the resolved worker pod name, empty until resolution happened.
func (e *ExecStream) Pod() string {
	return e.src.Pod
}

func (e *ExecStream) Next(ctx context.Context) (Record, bool) {
	if e.done {
		return Record{}, false
	}

	if !e.started {
		e.started = true
		if err := e.start(ctx); err != nil {
			e.done = true
			return ErrorRecord(e.src, err), true
		}
	}

	for {
		select {
		case d, ok := <-e.ch.Deliveries:
			if !ok {
				res := <-e.ch.Result
				e.finish()
				return e.terminalRecord(res), true
			}
			if len(d.Data) == 0 {
				continue
			}
			return e.runningRecord(d), true
		case <-ctx.Done():
			e.finish()
			return ErrorRecord(e.src, ctx.Err()), true
		}
	}
}

func (e *ExecStream) start(ctx context.Context) error {
	pods, err := e.backend.ResolvePods(ctx, e.namespace, e.prefix)
	if err != nil {
		return fmt.Errorf("resolve worker %q: %w", e.prefix, err)
	}
	if len(pods) == 0 {
		return fmt.Errorf("prefix %q in namespace %q: %w", e.prefix, e.namespace, cluster.ErrNoWorkerPods)
	}

	pod := pods[0]
	if !pod.Ready {
		return fmt.Errorf("pod %q: %w", pod.Name, cluster.ErrPodNotReady)
	}
	e.src.Pod = pod.Name
	e.src.Container = pod.Container

	execCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	ch, err := e.backend.StartExec(execCtx, pod, e.command)
	if err != nil {
		cancel()
		return fmt.Errorf("start exec: %w", err)
	}
	e.ch = ch
	return nil
}

func (e *ExecStream) runningRecord(d cluster.Delivery) Record {
	rec := Record{
		Content:   string(d.Data),
		Timestamp: now(),
		Source:    e.src,
		State:     StateRunning,
	}
	if d.Stream == cluster.Stderr {
		rec.Stderr = rec.Content
	} else {
		rec.Stdout = rec.Content
	}
	return rec
}

func (e *ExecStream) terminalRecord(res cluster.ExecResult) Record {
	if res.Err != nil {
		return ErrorRecord(e.src, res.Err)
	}

	code := res.ExitCode
	rec := Record{
		Timestamp: now(),
		Source:    e.src,
		ExitCode:  &code,
	}
	if code == 0 {
		rec.State = StateCompleted
		rec.Detail = "command completed successfully"
	} else {
		rec.State = StateError
		rec.Detail = fmt.Sprintf("%s: command exited with code %d", ClassNonzeroExit, code)
	}
	return rec
}

func (e *ExecStream) finish() {
	e.done = true
	e.Close()
}

// Close cancels the remote execution channel. The backend's pump goroutine
// exits once its context is canceled, so abandoning the stream mid-run does
// not leak the SPDY or attach connection.
func (e *ExecStream) Close() error {
	e.closeOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
	})
	return nil
}
