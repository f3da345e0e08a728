// Package scpi provides primitives for working with devices that
// have SCPI interfaces
package scpi

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/qctl/proteus/comm"
)

const (
	// DefaultTimeout bounds one command/response exchange
	DefaultTimeout = 5 * time.Second

	// maxHeaderDigits is the largest digit count an IEEE 488.2 definite
	// length block header can declare
	maxHeaderDigits = 9
)

var (
	// ErrBadBlock is generated when a binary response does not begin with
	// a definite length block header
	ErrBadBlock = errors.New("malformed IEEE 488.2 binary block")

	// ErrEmptyResponse is generated when the device answers a query with nothing
	ErrEmptyResponse = errors.New("empty response")
)

// DeviceError is an entry of the instrument's error queue
type DeviceError struct {
	Code    int
	Message string
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}

// ParseError converts an error queue entry such as `-113,"Undefined header"`
// or `0, no error` into a DeviceError.  Code zero yields nil.
func ParseError(s string) error {
	s = strings.TrimSpace(s)
	code, msg := s, ""
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		code, msg = s[:idx], strings.TrimSpace(s[idx+1:])
	}
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return errors.Errorf("unparseable error queue entry %q", s)
	}
	if n == 0 {
		return nil
	}
	return DeviceError{Code: n, Message: strings.Trim(msg, `"`)}
}

// SCPI is a type for encapsulating SCPI communication
type SCPI struct {
	Pool *comm.Pool

	// Handshaking indicates if the communication shall use handshaking,
	// where an error query is sent with every message
	// to ensure the device accepted the input
	Handshaking bool

	// Timeout bounds each exchange, DefaultTimeout if zero
	Timeout time.Duration
}

// exchange leases a connection, wraps it, and runs fn.  Transport errors
// destroy the connection; errors from the device leave it in the pool.
func (s *SCPI) exchange(fn func(t *comm.Terminator) error) error {
	conn, err := s.Pool.Get()
	if err != nil {
		return errors.Wrap(err, "scpi: no connection")
	}
	var terr error
	defer func() { s.Pool.ReturnWithError(conn, terr) }()
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	term := comm.NewTerminator(conn, '\n', '\n')
	if _, terr = comm.NewTimeout(term, timeout); terr != nil {
		return terr
	}
	err = fn(term)
	if err != nil {
		if _, ok := errors.Cause(err).(DeviceError); !ok {
			terr = err
		}
	}
	return err
}

func (s *SCPI) frame(cmds []string) string {
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	return strings.Join(cmds, " ")
}

// Write sends a command to the device.  if s.Handshaking == true,
// it also requests an error response and checks that it is OK
// it is assumed this is used for set operations and not get.
func (s *SCPI) Write(cmds ...string) error {
	return s.exchange(func(t *comm.Terminator) error {
		if _, err := io.WriteString(t, s.frame(cmds)); err != nil {
			return err
		}
		if !s.Handshaking {
			return nil
		}
		resp, err := t.ReadMessage()
		if err != nil {
			return err
		}
		return ParseError(string(resp))
	})
}

// WriteRead is write, but with a read call after.  It is assumed that "get"
// calls use this underlying mechanism
func (s *SCPI) WriteRead(cmds ...string) ([]byte, error) {
	var resp []byte
	err := s.exchange(func(t *comm.Terminator) error {
		if _, err := io.WriteString(t, s.frame(cmds)); err != nil {
			return err
		}
		var err error
		resp, err = t.ReadMessage()
		if err != nil {
			return err
		}
		if s.Handshaking {
			idx := strings.LastIndexByte(string(resp), ';')
			if idx < 0 {
				return errors.Errorf("handshake missing from response %q", resp)
			}
			errS := string(resp[idx+1:])
			resp = resp[:idx]
			return ParseError(errS)
		}
		return nil
	})
	return resp, err
}

// ReadString sends a command to the device, the reads the response
// and returns it as a decoded ASCII or UTF-8 string
func (s *SCPI) ReadString(cmds ...string) (string, error) {
	resp, err := s.WriteRead(cmds...)
	if err != nil {
		return "", err
	}
	str := strings.TrimRight(string(resp), "\r\n")
	if str == "" {
		return "", ErrEmptyResponse
	}
	return str, nil
}

// ReadFloat sends a command to the device, then reads the
// response and parses it as a floating point value
func (s *SCPI) ReadFloat(cmds ...string) (float64, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

// ReadBool sends a command to the device, then reads the
// response and parses it as a boolean
func (s *SCPI) ReadBool(cmds ...string) (bool, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(strings.TrimSpace(resp)) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(resp))
}

// ReadInt sends a command to the device, then reads the
// response and parses it as an integer
func (s *SCPI) ReadInt(cmds ...string) (int, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(resp))
}

// Raw sends a command to the device and returns a response if it was a query,
// else a blank string.  Handshaking is not used.
func (s *SCPI) Raw(str string) (string, error) {
	cpy := *s
	cpy.Handshaking = false
	if strings.Contains(str, "?") {
		return cpy.ReadString(str)
	}
	return "", cpy.Write(str)
}

// BlockHeader returns the IEEE 488.2 definite length block header for a
// payload of n bytes, e.g. "#42048"
func BlockHeader(n int) string {
	l := strconv.Itoa(n)
	return "#" + strconv.Itoa(len(l)) + l
}

// WriteBinary sends cmd followed by data as a definite length block
func (s *SCPI) WriteBinary(cmd string, data []byte) error {
	return s.exchange(func(t *comm.Terminator) error {
		head := cmd + " " + BlockHeader(len(data))
		buf := make([]byte, 0, len(head)+len(data)+1)
		buf = append(buf, head...)
		buf = append(buf, data...)
		buf = append(buf, '\n')
		if _, err := t.Write(buf); err != nil {
			return err
		}
		if !s.Handshaking {
			return nil
		}
		if _, err := io.WriteString(t, ":SYSTem:ERRor?"); err != nil {
			return err
		}
		resp, err := t.ReadMessage()
		if err != nil {
			return err
		}
		return ParseError(string(resp))
	})
}

// ReadBinary sends the query cmd and reads a definite length block
func (s *SCPI) ReadBinary(cmd string) ([]byte, error) {
	var data []byte
	err := s.exchange(func(t *comm.Terminator) error {
		if _, err := io.WriteString(t, cmd); err != nil {
			return err
		}
		var err error
		data, err = ReadBlock(t.Reader())
		return err
	})
	return data, err
}

// ReadBlock reads one IEEE 488.2 definite length block from r, consuming
// a trailing newline if one is already buffered
func ReadBlock(r *bufio.Reader) ([]byte, error) {
	c, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if c != '#' {
		return nil, errors.Wrapf(ErrBadBlock, "expected '#', got %q", c)
	}
	c, err = r.ReadByte()
	if err != nil {
		return nil, err
	}
	digits := int(c - '0')
	if digits < 1 || digits > maxHeaderDigits {
		return nil, errors.Wrapf(ErrBadBlock, "bad header digit count %q", c)
	}
	lenBuf := make([]byte, digits)
	if _, err = io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(string(lenBuf))
	if err != nil {
		return nil, errors.Wrapf(ErrBadBlock, "bad length %q", lenBuf)
	}
	data := make([]byte, n)
	if _, err = io.ReadFull(r, data); err != nil {
		return nil, err
	}
	if r.Buffered() > 0 {
		if b, _ := r.Peek(1); b[0] == '\n' {
			r.ReadByte()
		}
	}
	return data, nil
}

// PopError gets a single error from the queue on the device
func (s *SCPI) PopError() error {
	str, err := s.Raw(":SYSTem:ERRor?")
	if err != nil {
		return err
	}
	return ParseError(str)
}

// AllErrors returns all errors from the device as a list
func (s *SCPI) AllErrors() []error {
	var errs []error
	for {
		err := s.PopError()
		if err == nil {
			break
		}
		errs = append(errs, err)
		if _, ok := err.(DeviceError); !ok {
			// the link itself failed, the queue cannot be drained
			break
		}
	}
	return errs
}

// AllErrorsString is equivalent to AllErrors, but joining by newline
// if there were no errors, the error return value is nil, otherwise
// it is the first error in the list and has no particular meaning
func (s *SCPI) AllErrorsString() (string, error) {
	errs := s.AllErrors()
	if len(errs) == 0 {
		return "", nil
	}
	strs := make([]string, len(errs))
	for i := 0; i < len(errs); i++ {
		strs[i] = errs[i].Error()
	}
	return strings.Join(strs, "\n"), errs[0]
}

// Close frees the idle connections of the pool
func (s *SCPI) Close() error {
	return s.Pool.Close()
}
