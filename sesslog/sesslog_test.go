package sesslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecordSentinels(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	r := Record{Now: now, Start: now, SessionID: "abc"}
	line := r.String()
	fields := strings.Split(line, "|")
	if len(fields) != 17 {
		t.Fatalf("got %d fields, expected 17: %q", len(fields), line)
	}
	want := []string{
		"2024-05-01 12:30:00", "2024-05-01 12:30:00", "abc", NoIP,
		NoHelo, NoFrom, "0", NoRcpt, "0", NoFile,
		NotListed, None, None, "false", "0", "0", "0",
	}
	for i, w := range want {
		if fields[i] != w {
			t.Errorf("field %d: got %q, expected %q", i, fields[i], w)
		}
	}
}

func TestRecordFilled(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	r := Record{
		Now:         now,
		Start:       now.Add(-time.Minute),
		SessionID:   "abc",
		ClientIP:    "198.51.100.7",
		Helo:        "client.example",
		MailFrom:    "a@b.example",
		RcptTo:      []string{"x@y.example", "x@y.example"},
		MsgCount:    2,
		MsgFile:     "msg-abc-2.eml",
		ListType:    "black",
		ListName:    "bl.example",
		ListValue:   "127.0.0.2",
		EarlyTalker: true,
		NoopCount:   1,
		VrfyCount:   2,
		ErrCount:    3,
	}
	fields := strings.Split(r.String(), "|")
	if fields[1] != "2024-05-01 12:29:00" {
		t.Errorf("start field: got %q", fields[1])
	}
	if fields[6] != "2" || fields[7] != "x@y.example,x@y.example" {
		t.Errorf("rcpt fields: got %q %q", fields[6], fields[7])
	}
	if fields[10] != "black" || fields[13] != "true" || fields[16] != "3" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestLoggerAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Now()
	if err := l.Write(Record{Now: now, Start: now, SessionID: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Write(Record{Now: now, Start: now, SessionID: "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, expected 2", len(lines))
	}
}
