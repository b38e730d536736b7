// Package store persists accepted messages: one text file per message with
// the session envelope as a header block, plus a typed index in a bstore
// database for offline inspection.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mjl-/bstore"

	"github.com/robhughadams/FakeSMTP/mlog"
)

// Envelope is the session state stored with a message. The session engine
// fills it in at end of message; this package only renders it.
type Envelope struct {
	SessionIndex int64
	SessionID    string
	Start        time.Time
	ClientIP     string
	ListType     string
	ListName     string
	ListValue    string
	Helo         string
	MailFrom     string
	RcptTo       []string
	MsgCount     int
	NoopCount    int
	VrfyCount    int
	ErrCount     int
}

// Store accepts a message at end of DATA and returns an opaque identifier
// for the session log.
type Store interface {
	Deliver(ctx context.Context, log mlog.Log, env Envelope, body []byte) (string, error)
}

// Message is the index record kept per stored message.
type Message struct {
	ID        int64
	SessionID string `bstore:"nonzero,index"`
	File      string `bstore:"nonzero"`
	MailFrom  string
	RcptTo    []string
	Size      int64
	Received  time.Time
}

// DBTypes are the types stored in the index database.
var DBTypes = []any{Message{}}

// DirStore stores messages as files in a directory, with the index database
// next to them.
type DirStore struct {
	dir string
	db  *bstore.DB
}

var _ Store = (*DirStore)(nil)

// Open creates the store directory if needed and opens the message index.
func Open(ctx context.Context, log mlog.Log, dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, fmt.Errorf("creating store directory: %v", err)
	}
	db, err := bstore.Open(ctx, filepath.Join(dir, "index.db"), &bstore.Options{Timeout: 5 * time.Second, Perm: 0660}, DBTypes...)
	if err != nil {
		return nil, fmt.Errorf("opening message index: %v", err)
	}
	return &DirStore{dir: dir, db: db}, nil
}

// Close closes the index database.
func (s *DirStore) Close() error {
	err := s.db.Close()
	s.db = nil
	return err
}

// Deliver writes the message file and its index record, returning the file
// name. The file is authoritative: an index failure is logged but does not
// fail the delivery.
func (s *DirStore) Deliver(ctx context.Context, log mlog.Log, env Envelope, body []byte) (rname string, rerr error) {
	name := fmt.Sprintf("msg-%s-%d.eml", env.SessionID, env.MsgCount)
	p := filepath.Join(s.dir, name)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0660)
	if err != nil {
		return "", fmt.Errorf("creating message file: %v", err)
	}
	defer func() {
		if rerr != nil {
			if err := os.Remove(p); err != nil {
				log.Errorx("removing message file after failed delivery", err, slog.String("file", p))
			}
		}
	}()

	var b strings.Builder
	writeEnvelope(&b, env)
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return "", fmt.Errorf("writing envelope: %v", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return "", fmt.Errorf("writing body: %v", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("sync message file: %v", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing message file: %v", err)
	}

	m := Message{
		SessionID: env.SessionID,
		File:      name,
		MailFrom:  env.MailFrom,
		RcptTo:    append([]string{}, env.RcptTo...),
		Size:      int64(len(body)),
		Received:  time.Now().UTC(),
	}
	if err := s.db.Insert(ctx, &m); err != nil {
		log.Errorx("inserting message index record", err, slog.String("file", name))
	}

	log.Debug("message stored",
		slog.String("file", name),
		slog.Int("size", len(body)),
		slog.String("mailfrom", env.MailFrom))
	return name, nil
}

func writeEnvelope(b *strings.Builder, env Envelope) {
	fmt.Fprintf(b, "X-Session-Index: %d\r\n", env.SessionIndex)
	fmt.Fprintf(b, "X-Session-ID: %s\r\n", env.SessionID)
	fmt.Fprintf(b, "X-Session-Start: %s\r\n", env.Start.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "X-Client-IP: %s\r\n", env.ClientIP)
	if env.ListType != "" {
		fmt.Fprintf(b, "X-DNS-List: %s %s %s\r\n", env.ListType, env.ListName, env.ListValue)
	} else {
		fmt.Fprintf(b, "X-DNS-List: -not-listed-\r\n")
	}
	fmt.Fprintf(b, "X-HELO: %s\r\n", env.Helo)
	fmt.Fprintf(b, "X-Mail-From: %s\r\n", env.MailFrom)
	for _, rcpt := range env.RcptTo {
		fmt.Fprintf(b, "X-Rcpt-To: %s\r\n", rcpt)
	}
	fmt.Fprintf(b, "X-Counters: msgs=%d noop=%d vrfy=%d err=%d\r\n", env.MsgCount, env.NoopCount, env.VrfyCount, env.ErrCount)
	b.WriteString("\r\n")
}
