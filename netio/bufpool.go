package netio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/robhughadams/FakeSMTP/mlog"
)

// ErrLineTooLong is returned by Bufpool.Readline for a line without newline
// within the buffer size.
var ErrLineTooLong = errors.New("line from remote too long")

// Bufpool caches byte slices for reuse while reading line-terminated commands.
type Bufpool struct {
	c    chan []byte
	size int
}

// NewBufpool makes a new pool, initially empty, holding at most "max" buffers
// of "size" bytes each.
func NewBufpool(max, size int) *Bufpool {
	return &Bufpool{
		c:    make(chan []byte, max),
		size: size,
	}
}

func (b *Bufpool) get() []byte {
	select {
	case buf := <-b.c:
		return buf
	default:
	}
	return make([]byte, b.size)
}

func (b *Bufpool) put(log mlog.Log, buf []byte, n int) {
	if len(buf) != b.size {
		log.Error("buffer with bad size returned, ignoring", slog.Int("badsize", len(buf)), slog.Int("expsize", b.size))
		return
	}
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
	select {
	case b.c <- buf:
	default:
	}
}

// Readline reads a \n- or \r\n-terminated line, returned without the line
// ending. If the line does not fit the buffer, ErrLineTooLong is returned.
// An EOF before any newline is returned as io.ErrUnexpectedEOF.
func (b *Bufpool) Readline(log mlog.Log, r *bufio.Reader) (line string, rerr error) {
	var nread int
	buf := b.get()
	defer func() {
		b.put(log, buf, nread)
	}()

	for {
		if nread >= len(buf) {
			return "", fmt.Errorf("%w: no newline after %d bytes", ErrLineTooLong, nread)
		}
		c, err := r.ReadByte()
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		} else if err != nil {
			return "", fmt.Errorf("reading line from remote: %w", err)
		}
		if c == '\n' {
			var s string
			if nread > 0 && buf[nread-1] == '\r' {
				s = string(buf[:nread-1])
			} else {
				s = string(buf[:nread])
			}
			nread++
			return s, nil
		}
		buf[nread] = c
		nread++
	}
}
