package comm

import (
	"bufio"
	"io"
	"time"
)

// Terminator wraps a ReadWriter so that writes are terminated by Tx and
// reads return one Rx-terminated message at a time
type Terminator struct {
	rw io.ReadWriter
	br *bufio.Reader

	// Rx is the byte which ends a message from the device
	Rx byte

	// Tx is the byte appended to every write
	Tx byte
}

// NewTerminator wraps rw with the given receive and transmit terminators
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, br: bufio.NewReader(rw), Rx: rx, Tx: tx}
}

// Write sends b followed by the Tx terminator, unless b already ends with it
func (t *Terminator) Write(b []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	n := len(b)
	if n == 0 || b[n-1] != t.Tx {
		buf := make([]byte, n+1)
		copy(buf, b)
		buf[n] = t.Tx
		b = buf
	}
	m, err := t.rw.Write(b)
	if m > n {
		m = n
	}
	return m, err
}

// Read fills p with bytes up to and including the Rx terminator.  If p
// fills first, the rest of the message is left for the next Read.
func (t *Terminator) Read(p []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	for i := range p {
		c, err := t.br.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = c
		if c == t.Rx {
			return i + 1, nil
		}
	}
	return len(p), nil
}

// ReadMessage reads one complete message and strips the Rx terminator
func (t *Terminator) ReadMessage() ([]byte, error) {
	if t.rw == nil {
		return nil, ErrNotConnected
	}
	b, err := t.br.ReadBytes(t.Rx)
	if err != nil {
		if err == io.EOF && len(b) > 0 {
			return b, ErrTerminatorNotFound
		}
		return b, err
	}
	return b[:len(b)-1], nil
}

// Reader exposes the buffered reader so binary payloads that may contain
// the terminator can be read without losing buffered bytes
func (t *Terminator) Reader() *bufio.Reader {
	return t.br
}

// SetDeadline forwards to the wrapped connection, if it supports deadlines
func (t *Terminator) SetDeadline(d time.Time) error {
	if dl, ok := t.rw.(deadliner); ok {
		return dl.SetDeadline(d)
	}
	return nil
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// NewTimeout sets a deadline of now+d on rw if it supports deadlines and
// returns rw.  Links without deadlines, such as serial ports configured
// with a read timeout, are returned unchanged.
func NewTimeout(rw io.ReadWriter, d time.Duration) (io.ReadWriter, error) {
	if dl, ok := rw.(deadliner); ok {
		if err := dl.SetDeadline(time.Now().Add(d)); err != nil {
			return rw, err
		}
	}
	return rw, nil
}
