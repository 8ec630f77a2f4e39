// Package cluster abstracts the remote control-plane APIs the streaming core
// consumes: opening chunked log streams, executing commands with separate
// stdout/stderr deliveries, and resolving worker pods from a name prefix.
//
// Two backends implement the abstraction: Kubernetes (client-go, the
// production path) and Docker (local development). Backend selection happens
// once at startup, see registry.go.
package cluster

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoWorkerPods is returned when prefix resolution matches nothing.
	ErrNoWorkerPods = errors.New("no worker pods matched prefix")

	// ErrPodNotReady is returned when the resolved worker exists but is not
	// in a ready state; no execution is attempted against it.
	ErrPodNotReady = errors.New("worker pod is not ready")

	// ErrNotFound is wrapped around backend-native not-found failures so
	// callers can classify them without knowing the backend.
	ErrNotFound = errors.New("not found")

	// ErrMalformedStream is wrapped around failures to decode the remote
	// byte stream (e.g. a corrupt multiplexing header).
	ErrMalformedStream = errors.New("malformed stream")
)

// Pod is a resolved workload target.
type Pod struct {
	Name      string
	Namespace string
	Container string
	Ready     bool
}

// LogOptions parameterize a container log stream.
type LogOptions struct {
	Pod       string
	Namespace string
	Container string
	TailLines *int64
	Follow    bool
}

// Backend is the remote collaborator surface. Implementations own all
// transport concerns (connection pooling, authentication, reconnects);
// callers only see streams and channels.
type Backend interface {
	// Name identifies the backend ("kubernetes" or "docker").
	Name() string

	// Initialize connects to the control plane. It must be called once
	// before any other method.
	Initialize(ctx context.Context) error

	// ResolvePods returns the workers whose identity matches the prefix,
	// with readiness state. An empty result is not an error.
	ResolvePods(ctx context.Context, namespace, prefix string) ([]Pod, error)

	// OpenLogStream opens a chunked byte stream of a container's log
	// output. The returned reader delivers arbitrary chunk boundaries; in
	// follow mode it blocks until more data arrives or the stream closes.
	OpenLogStream(ctx context.Context, opts LogOptions) (io.ReadCloser, error)

	// StartExec opens an execution channel against the pod. Output arrives
	// on the channel's deliveries in arrival order; the exit code is
	// delivered only after both output streams close.
	StartExec(ctx context.Context, pod Pod, command []string) (*ExecChannel, error)
}
