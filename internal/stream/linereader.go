package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dbext/podstream/internal/cluster"
)

const readChunkSize = 4096

// LogStream reads a remote chunked log stream line by line. The remote side
// delivers arbitrary chunk boundaries; only the undelimited tail of the
// current line is buffered between reads. Opening the remote stream is
// deferred to the first Next call so open failures surface as the terminal
// error record of the sequence.
type LogStream struct {
	backend cluster.Backend
	opts    cluster.LogOptions
	src     Source

	rc      io.ReadCloser
	started bool
	eof     bool
	done    bool
	buf     []byte
	rbuf    []byte
	queued  *Record

	closeOnce sync.Once
	closeErr  error
}

// NewLogStream prepares a log-line producer for one container. With
// opts.Follow the sequence is unbounded and Next suspends between chunks;
// without it the sequence ends when the remote replay is exhausted.
func NewLogStream(backend cluster.Backend, opts cluster.LogOptions) *LogStream {
	return &LogStream{
		backend: backend,
		opts:    opts,
		src: Source{
			Pod:       opts.Pod,
			Namespace: opts.Namespace,
			Container: opts.Container,
		},
		rbuf: make([]byte, readChunkSize),
	}
}

func (s *LogStream) Next(ctx context.Context) (Record, bool) {
	if s.done {
		return Record{}, false
	}

	if s.queued != nil {
		rec := *s.queued
		s.queued = nil
		s.finish()
		return rec, true
	}

	if !s.started {
		s.started = true
		rc, err := s.backend.OpenLogStream(ctx, s.opts)
		if err != nil {
			s.finish()
			return ErrorRecord(s.src, err), true
		}
		s.rc = rc
	}

	for {
		if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
			line := string(s.buf[:i])
			s.buf = s.buf[i+1:]
			return streamingRecord(s.src, line), true
		}

		if s.eof {
			if len(s.buf) > 0 {
				// Unterminated final line: flush it, then complete.
				line := string(s.buf)
				s.buf = nil
				terminal := completedRecord(s.src, "log stream closed")
				s.queued = &terminal
				return streamingRecord(s.src, line), true
			}
			s.finish()
			return completedRecord(s.src, "log stream closed"), true
		}

		if err := ctx.Err(); err != nil {
			s.finish()
			return ErrorRecord(s.src, err), true
		}

		n, err := s.rc.Read(s.rbuf)
		if n > 0 {
			s.buf = append(s.buf, s.rbuf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			s.finish()
			return ErrorRecord(s.src, err), true
		}
	}
}

func (s *LogStream) finish() {
	s.done = true
	s.Close()
}

// Close releases the remote stream. Safe to call at any point, including on
// an abandoned stream; a follow-mode reader blocked in Read is unblocked by
// closing the underlying connection.
func (s *LogStream) Close() error {
	s.closeOnce.Do(func() {
		if s.rc != nil {
			s.closeErr = s.rc.Close()
		}
	})
	return s.closeErr
}
