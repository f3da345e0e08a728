/*Package comm provides connection pooling and stream wrappers for talking to
lab hardware over TCP or serial links.

Most usages of this package boil down to:
	1.  describe the link with a Target
	2.  build a Pool from Target.Maker, which dials with exponential backoff
	3.  Get a connection, wrap it with NewTerminator and NewTimeout, and
		Put or Destroy it when done

	pool := comm.NewPool(1, 30*time.Second, comm.Target{Addr: "192.168.0.3:5025"}.Maker())
	conn, err := pool.Get()
	if err != nil {
		return err
	}
	defer func() { pool.ReturnWithError(conn, err) }()
	wrap, err := comm.NewTimeout(comm.NewTerminator(conn, '\n', '\n'), 5*time.Second)
*/
package comm

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when a wrapper is used around a nil connection
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// Target describes how to reach a device
type Target struct {
	// Addr is host:port for TCP, or the device path for serial
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Serial selects a serial port instead of TCP
	Serial bool `yaml:"Serial" koanf:"Serial"`

	// Baud is the serial baud rate, ignored for TCP
	Baud int `yaml:"Baud" koanf:"Baud"`

	// DialTimeout bounds a single connection attempt
	DialTimeout time.Duration `yaml:"DialTimeout" koanf:"DialTimeout"`
}

// Maker returns a CreationFunc that dials t with exponential backoff
func (t Target) Maker() CreationFunc {
	dial := func() (io.ReadWriteCloser, error) {
		if t.Serial {
			baud := t.Baud
			if baud == 0 {
				baud = 9600
			}
			return serial.OpenPort(&serial.Config{Name: t.Addr, Baud: baud, ReadTimeout: t.timeout()})
		}
		return TCPSetup(t.Addr, t.timeout())
	}
	return Backoff(dial)
}

func (t Target) timeout() time.Duration {
	if t.DialTimeout == 0 {
		return 3 * time.Second
	}
	return t.DialTimeout
}

// Backoff wraps maker so that failed attempts are retried with an
// exponential backoff.  A refused connection is not retried; the device
// is there and does not want to talk.
func Backoff(maker CreationFunc) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn io.ReadWriteCloser
		op := func() error {
			c, err := maker()
			if err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "refused") {
					return backoff.Permanent(err)
				}
				return err
			}
			conn = c
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			return nil, errors.Wrap(err, "connection failed")
		}
		return conn, nil
	}
}

// TCPSetup opens a new TCP connection with a timeout on connect
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}
