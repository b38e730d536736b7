// Package sesslog writes the append-only session log: one pipe-delimited
// record per completed message, and one per session that ends without any.
package sesslog

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sentinel tokens for fields a session never filled in.
const (
	NoHelo    = "-no-helo-"
	NoFrom    = "-no-from-"
	NoRcpt    = "-no-rcpt-"
	NoFile    = "-no-file-"
	NotListed = "-not-listed-"
	None      = "-none-"
	NoIP      = "0.0.0.0"
)

const timeFormat = "2006-01-02 15:04:05"

// Record is one session log line.
type Record struct {
	Now         time.Time
	Start       time.Time
	SessionID   string
	ClientIP    string
	Helo        string
	MailFrom    string
	RcptTo      []string
	MsgCount    int
	MsgFile     string
	ListType    string
	ListName    string
	ListValue   string
	EarlyTalker bool
	NoopCount   int
	VrfyCount   int
	ErrCount    int
}

// String renders the record as its pipe-delimited line, without newline.
// Column order is part of the log contract.
func (r Record) String() string {
	fields := []string{
		r.Now.UTC().Format(timeFormat),
		r.Start.UTC().Format(timeFormat),
		r.SessionID,
		orSentinel(r.ClientIP, NoIP),
		orSentinel(r.Helo, NoHelo),
		orSentinel(r.MailFrom, NoFrom),
		strconv.Itoa(len(r.RcptTo)),
		orSentinel(strings.Join(r.RcptTo, ","), NoRcpt),
		strconv.Itoa(r.MsgCount),
		orSentinel(r.MsgFile, NoFile),
		orSentinel(r.ListType, NotListed),
		orSentinel(r.ListName, None),
		orSentinel(r.ListValue, None),
		strconv.FormatBool(r.EarlyTalker),
		strconv.Itoa(r.NoopCount),
		strconv.Itoa(r.VrfyCount),
		strconv.Itoa(r.ErrCount),
	}
	return strings.Join(fields, "|")
}

func orSentinel(s, sentinel string) string {
	if s == "" {
		return sentinel
	}
	return s
}

// Logger appends records to the session log file, or to standard error when
// no path is configured.
type Logger struct {
	sync.Mutex
	f *os.File
}

// Open opens the session log for appending, creating it if needed. An empty
// path logs to standard error.
func Open(path string) (*Logger, error) {
	if path == "" {
		return &Logger{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %v", err)
	}
	return &Logger{f: f}, nil
}

// Write appends one record.
func (l *Logger) Write(r Record) error {
	l.Lock()
	defer l.Unlock()
	w := l.f
	if w == nil {
		w = os.Stderr
	}
	_, err := w.WriteString(r.String() + "\n")
	return err
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.Lock()
	defer l.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
