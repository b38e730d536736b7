package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mjl-/bstore"

	"github.com/robhughadams/FakeSMTP/mlog"
)

var ctxbg = context.Background()

func TestDeliver(t *testing.T) {
	log := mlog.New("store", nil)
	dir := filepath.Join(t.TempDir(), "messages")
	s, err := Open(ctxbg, log, dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	env := Envelope{
		SessionIndex: 7,
		SessionID:    "abc123",
		Start:        time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		ClientIP:     "198.51.100.7",
		Helo:         "client.example",
		MailFrom:     "a@b.example",
		RcptTo:       []string{"x@y.example", "z@y.example"},
		MsgCount:     1,
	}
	body := []byte("Subject: hi\r\n\r\nbody\r\n")

	name, err := s.Deliver(ctxbg, log, env, body)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if name != "msg-abc123-1.eml" {
		t.Fatalf("got file name %q", name)
	}

	buf, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading message file: %v", err)
	}
	text := string(buf)
	for _, want := range []string{
		"X-Session-Index: 7\r\n",
		"X-Session-ID: abc123\r\n",
		"X-Session-Start: 2024-05-01T12:30:00Z\r\n",
		"X-Client-IP: 198.51.100.7\r\n",
		"X-DNS-List: -not-listed-\r\n",
		"X-HELO: client.example\r\n",
		"X-Mail-From: a@b.example\r\n",
		"X-Rcpt-To: x@y.example\r\n",
		"X-Rcpt-To: z@y.example\r\n",
		"X-Counters: msgs=1 noop=0 vrfy=0 err=0\r\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message file misses %q:\n%s", want, text)
		}
	}
	if !strings.HasSuffix(text, "\r\n\r\n"+string(body)) {
		t.Errorf("message file does not end with blank line and body:\n%s", text)
	}

	// A second message of the same session gets its own file.
	env.MsgCount = 2
	name2, err := s.Deliver(ctxbg, log, env, body)
	if err != nil {
		t.Fatalf("deliver again: %v", err)
	}
	if name2 == name {
		t.Fatalf("duplicate file name %q", name2)
	}

	// Both deliveries are in the index.
	n, err := bstore.QueryDB[Message](ctxbg, s.db).FilterNonzero(Message{SessionID: "abc123"}).Count()
	if err != nil {
		t.Fatalf("counting index records: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d index records, expected 2", n)
	}
}

func TestDeliverListed(t *testing.T) {
	log := mlog.New("store", nil)
	s, err := Open(ctxbg, log, filepath.Join(t.TempDir(), "messages"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	env := Envelope{
		SessionID: "abc",
		Start:     time.Now(),
		ClientIP:  "198.51.100.7",
		ListType:  "black",
		ListName:  "bl.example",
		ListValue: "127.0.0.2",
		MsgCount:  1,
	}
	name, err := s.Deliver(ctxbg, log, env, []byte("x\r\n"))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	buf, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		t.Fatalf("reading message file: %v", err)
	}
	if !strings.Contains(string(buf), "X-DNS-List: black bl.example 127.0.0.2\r\n") {
		t.Errorf("verdict header missing:\n%s", buf)
	}
}
