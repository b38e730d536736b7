package netio

import (
	"io"
	"log/slog"

	"github.com/robhughadams/FakeSMTP/mlog"
)

// TraceWriter wraps a writer and logs each line written through it, prefixed
// with a direction tag such as "SND: ". This is the verbose protocol log.
type TraceWriter struct {
	log    mlog.Log
	prefix string
	w      io.Writer
	level  slog.Level
}

// NewTraceWriter wraps "w" into a writer that logs all writes to "log" with
// log level trace, prefixed with "prefix".
func NewTraceWriter(log mlog.Log, prefix string, w io.Writer) *TraceWriter {
	return &TraceWriter{log, prefix, w, mlog.LevelTrace}
}

// Write logs a trace line per protocol line in buf, then writes to the
// underlying writer.
func (w *TraceWriter) Write(buf []byte) (int, error) {
	traceLines(w.log, w.level, w.prefix, buf)
	return w.w.Write(buf)
}

// TraceReader wraps a reader and logs each line read through it.
type TraceReader struct {
	log    mlog.Log
	prefix string
	r      io.Reader
	level  slog.Level
}

// NewTraceReader wraps reader "r" into a reader that logs all reads to "log"
// with log level trace, prefixed with "prefix".
func NewTraceReader(log mlog.Log, prefix string, r io.Reader) *TraceReader {
	return &TraceReader{log, prefix, r, mlog.LevelTrace}
}

// Read does a single Read on the underlying reader and logs the data read.
func (r *TraceReader) Read(buf []byte) (int, error) {
	n, err := r.r.Read(buf)
	if n > 0 {
		traceLines(r.log, r.level, r.prefix, buf[:n])
	}
	return n, err
}

func traceLines(log mlog.Log, level slog.Level, prefix string, buf []byte) {
	for len(buf) > 0 {
		line := buf
		for i, c := range buf {
			if c == '\n' {
				line = buf[:i+1]
				break
			}
		}
		log.Trace(level, prefix, line)
		buf = buf[len(line):]
	}
}
