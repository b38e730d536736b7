// Package mlog provides logging with log levels and structured fields, built
// on log/slog.
//
// The debug, info, error, print and fatal levels each have a function to log
// with and without an error; trace has Trace for protocol data. Variable
// data should be in attrs, log strings themselves constant, for easier log
// processing.
//
// Log levels can be configured per originating package, e.g. smtpserver or
// dnsxl. The configuration is process-global, so each Log instance uses the
// same log levels.
//
// Print should be used for lines that must always be printed, regardless of
// configured log levels. Fatal stops the program.
//
// The trace level logs protocol data (the SMTP lines exchanged with a
// client), and is what the verbose log option enables.
package mlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Logfmt enables logfmt-style output instead of the default plain text.
var Logfmt bool

// Levels, relative to the standard slog levels. Print and Fatal are above
// error so they are never filtered out.
const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFatal slog.Level = 12
	LevelPrint slog.Level = 16
)

// LevelStrings map levels to their configuration names.
var LevelStrings = map[slog.Level]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
	LevelPrint: "print",
}

// Levels map configuration names to levels.
var Levels = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
	"fatal": LevelFatal,
	"print": LevelPrint,
}

// Holds a map[string]slog.Level, mapping a package (attr pkg in logs) to a
// minimum log level. The empty string is the default/fallback level.
var config atomic.Value

func init() {
	config.Store(map[string]slog.Level{"": LevelError})
}

// SetConfig atomically sets the new log levels used by all Log instances.
func SetConfig(c map[string]slog.Level) {
	config.Store(c)
}

type key string

// CidKey can be used with context.WithValue to store a "cid" in a context,
// for logging.
var CidKey key = "cid"

// Log wraps a slog.Logger with the x-suffixed error variants and protocol
// tracing.
type Log struct {
	*slog.Logger
}

// New returns a Log that adds attr "pkg" to each logged line, wrapping elog,
// or the default handler writing to stderr if elog is nil.
func New(pkg string, elog *slog.Logger) Log {
	if elog == nil {
		elog = slog.New(&handler{})
	}
	return Log{elog.With(slog.String("pkg", pkg))}
}

// WithCid adds attr "cid" for all lines logged through the returned Log.
func (l Log) WithCid(cid int64) Log {
	return Log{l.Logger.With(slog.Int64("cid", cid))}
}

// WithContext adds a cid from the context, if present.
func (l Log) WithContext(ctx context.Context) Log {
	cidv := ctx.Value(CidKey)
	if cidv == nil {
		return l
	}
	return l.WithCid(cidv.(int64))
}

// WithFunc sets fn to be called for additional attrs just before each line
// is logged.
func (l Log) WithFunc(fn func() []slog.Attr) Log {
	return Log{slog.New(&funcHandler{l.Logger.Handler(), fn})}
}

func (l Log) Debug(msg string, attrs ...slog.Attr) { l.logx(LevelDebug, nil, msg, attrs...) }
func (l Log) Debugx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelDebug, err, msg, attrs...)
}

func (l Log) Info(msg string, attrs ...slog.Attr) { l.logx(LevelInfo, nil, msg, attrs...) }
func (l Log) Infox(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelInfo, err, msg, attrs...)
}

func (l Log) Error(msg string, attrs ...slog.Attr) { l.logx(LevelError, nil, msg, attrs...) }
func (l Log) Errorx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelError, err, msg, attrs...)
}

func (l Log) Print(msg string, attrs ...slog.Attr) { l.logx(LevelPrint, nil, msg, attrs...) }
func (l Log) Printx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelPrint, err, msg, attrs...)
}

func (l Log) Fatal(msg string, attrs ...slog.Attr) { l.Fatalx(msg, nil, attrs...) }
func (l Log) Fatalx(msg string, err error, attrs ...slog.Attr) {
	l.logx(LevelFatal, err, msg, attrs...)
	os.Exit(1)
}

// Check logs an error-level line with msg and err if err is not nil.
func (l Log) Check(err error, msg string, attrs ...slog.Attr) {
	if err != nil {
		l.Errorx(msg, err, attrs...)
	}
}

// Trace logs protocol data at trace level, msg prefixed (e.g. "SND: ") and
// the raw line as quoted text.
func (l Log) Trace(level slog.Level, prefix string, data []byte) {
	if !l.Logger.Enabled(context.Background(), level) {
		return
	}
	msg := prefix + strings.TrimRight(string(data), "\r\n")
	l.logx(level, nil, msg)
}

func (l Log) logx(level slog.Level, err error, msg string, attrs ...slog.Attr) {
	if err != nil {
		attrs = append([]slog.Attr{slog.Any("err", err)}, attrs...)
	}
	l.Logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// funcHandler calls fn for additional attrs at log time.
type funcHandler struct {
	h  slog.Handler
	fn func() []slog.Attr
}

func (h *funcHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *funcHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.fn()...)
	return h.h.Handle(ctx, r)
}

func (h *funcHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &funcHandler{h.h.WithAttrs(attrs), h.fn}
}

func (h *funcHandler) WithGroup(name string) slog.Handler {
	return &funcHandler{h.h.WithGroup(name), h.fn}
}

// handler is the default handler, writing to stderr, with the minimum level
// looked up by the pkg attr in the process-global config.
type handler struct {
	attrs []slog.Attr
}

var outMutex sync.Mutex

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= LevelFatal {
		return true
	}
	cl := config.Load().(map[string]slog.Level)
	for _, a := range h.attrs {
		if a.Key == "pkg" {
			if v, ok := cl[a.Value.String()]; ok {
				return level >= v
			}
		}
	}
	return level >= cl[""]
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	// Buffer the full line so concurrent sessions don't interleave partial lines.
	var b strings.Builder
	if Logfmt {
		fmt.Fprintf(&b, "l=%s m=%s", levelString(r.Level), logfmtValue(r.Message))
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%s", a.Key, logfmtValue(a.Value.String()))
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%s", a.Key, logfmtValue(a.Value.String()))
			return true
		})
	} else {
		fmt.Fprintf(&b, "%s: %s", levelString(r.Level), logfmtValue(r.Message))
		var n int
		attr := func(a slog.Attr) bool {
			if n == 0 {
				b.WriteString(" (")
			} else {
				b.WriteString("; ")
			}
			n++
			fmt.Fprintf(&b, "%s: %s", a.Key, logfmtValue(a.Value.String()))
			return true
		}
		for _, a := range h.attrs {
			attr(a)
		}
		r.Attrs(attr)
		if n > 0 {
			b.WriteString(")")
		}
	}
	b.WriteString("\n")

	outMutex.Lock()
	defer outMutex.Unlock()
	_, err := os.Stderr.WriteString(b.String())
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &handler{}
	nh.attrs = append(append(nh.attrs, h.attrs...), attrs...)
	return nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	// Groups are not used in this code base.
	return h
}

func levelString(level slog.Level) string {
	if s, ok := LevelStrings[level]; ok {
		return s
	}
	return level.String()
}

// Quote a value if needed for unambiguous parsing.
func logfmtValue(s string) string {
	for _, c := range s {
		if c == '"' || c == '\\' || c <= ' ' || c == '=' || c >= 0x7f {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}
