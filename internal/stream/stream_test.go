package stream

import (
	"context"
	"io"

	"github.com/dbext/podstream/internal/cluster"
)

// chunkReader serves predefined chunks one Read at a time, then EOF or a
// configured error. It records whether it was closed so tests can assert the
// cleanup path ran.
type chunkReader struct {
	chunks [][]byte
	err    error
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks = append([][]byte{chunk[n:]}, r.chunks...)
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

// fakeBackend implements cluster.Backend in memory.
type fakeBackend struct {
	pods    []cluster.Pod
	podsErr error

	logReader *chunkReader
	openErr   error

	execCh  *cluster.ExecChannel
	execErr error

	resolveCalls int
	execCommand  []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Initialize(ctx context.Context) error { return nil }

func (f *fakeBackend) ResolvePods(ctx context.Context, namespace, prefix string) ([]cluster.Pod, error) {
	f.resolveCalls++
	return f.pods, f.podsErr
}

func (f *fakeBackend) OpenLogStream(ctx context.Context, opts cluster.LogOptions) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.logReader, nil
}

func (f *fakeBackend) StartExec(ctx context.Context, pod cluster.Pod, command []string) (*cluster.ExecChannel, error) {
	f.execCommand = command
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.execCh, nil
}

// execChannel builds a pre-recorded ExecChannel.
func execChannel(deliveries []cluster.Delivery, res cluster.ExecResult) *cluster.ExecChannel {
	dch := make(chan cluster.Delivery, len(deliveries)+1)
	for _, d := range deliveries {
		dch <- d
	}
	close(dch)
	rch := make(chan cluster.ExecResult, 1)
	rch <- res
	return &cluster.ExecChannel{Deliveries: dch, Result: rch}
}

// drain advances a stream to exhaustion and returns everything it yielded.
func drain(ctx context.Context, s Stream) []Record {
	var records []Record
	for {
		rec, ok := s.Next(ctx)
		if !ok {
			return records
		}
		records = append(records, rec)
	}
}
