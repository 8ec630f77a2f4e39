package stream

import (
	"context"
	"fmt"
	"regexp"
)

// FilterStream narrows a streaming-record source to lines matching a pattern
// and caps the number of emitted lines. Accepted lines are re-tagged as
// filtered and numbered from 0 with no gaps. Composes over any Stream whose
// data records are streaming lines, so pattern matching and capping stay
// independent of how the lines were produced.
type FilterStream struct {
	src      Stream
	pattern  *regexp.Regexp
	maxLines int

	accepted int
	lastSrc  Source
	done     bool
}

// NewFilterStream wraps src. A nil pattern accepts every line; the pattern
// otherwise matches anywhere in the line, not anchored. maxLines bounds the
// output: once reached the sequence completes without consulting src again.
func NewFilterStream(src Stream, pattern *regexp.Regexp, maxLines int) *FilterStream {
	return &FilterStream{src: src, pattern: pattern, maxLines: maxLines}
}

func (f *FilterStream) Next(ctx context.Context) (Record, bool) {
	if f.done {
		return Record{}, false
	}

	if f.accepted >= f.maxLines {
		f.done = true
		f.src.Close()
		return completedRecord(f.lastSrc, fmt.Sprintf("line limit reached (%d lines)", f.maxLines)), true
	}

	for {
		rec, ok := f.src.Next(ctx)
		if !ok {
			f.done = true
			return Record{}, false
		}
		f.lastSrc = rec.Source

		switch rec.State {
		case StateStreaming:
			if f.pattern != nil && !f.pattern.MatchString(rec.Content) {
				continue
			}
			idx := f.accepted
			f.accepted++
			rec.State = StateFiltered
			rec.Sequence = &idx
			return rec, true
		case StateCompleted, StateError:
			// Terminal records pass through unchanged; an upstream error is
			// not re-classified.
			f.done = true
			return rec, true
		default:
			continue
		}
	}
}

func (f *FilterStream) Close() error {
	return f.src.Close()
}
