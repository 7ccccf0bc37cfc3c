// Package diag provides the firmware's one-way diagnostic channel: a slog
// logger whose output is best-effort and can never fail the caller.
package diag

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"spec-mtc-go/x/shmring"
)

var errShortWrite = errors.New("short write")

// Sink wraps a writer and swallows its failures. Dropped bytes are counted.
type Sink struct {
	w       io.Writer
	dropped atomic.Uint32
}

func NewSink(w io.Writer) *Sink { return &Sink{w: w} }

func (s *Sink) Write(p []byte) (int, error) {
	if s == nil || s.w == nil {
		return len(p), nil
	}
	n, err := s.w.Write(p)
	if n < 0 {
		n = 0
	}
	if err != nil || n < len(p) {
		s.dropped.Add(uint32(len(p) - n))
	}
	return len(p), nil
}

// Dropped reports how many bytes never reached the underlying writer.
func (s *Sink) Dropped() uint32 { return s.dropped.Load() }

// RingWriter writes into a ring without blocking; what does not fit is lost.
type RingWriter struct{ R *shmring.Ring }

func (w RingWriter) Write(p []byte) (int, error) {
	n := w.R.TryWriteFrom(p)
	if n < len(p) {
		return n, errShortWrite
	}
	return n, nil
}

// New returns a text logger writing to w through a Sink. Timestamps are
// omitted: records that need time carry an uptime attribute instead.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return NewWithSink(NewSink(w), level)
}

// NewWithSink is New for callers that want to read the drop counter.
func NewWithSink(s *Sink, level slog.Leveler) *slog.Logger {
	h := slog.NewTextHandler(s, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: dropTime,
	})
	return slog.New(h)
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Or returns l, or a logger that discards everything when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discard
	}
	return l
}
