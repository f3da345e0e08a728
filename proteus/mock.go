package proteus

import (
	"encoding/binary"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/qctl/proteus/scpi"
)

// ErrNoMockResponse is generated when Mock is queried for something it was
// not told how to answer
var ErrNoMockResponse = errors.New("mock: no canned response")

// Mock is a Driver that records every command and answers queries from
// canned responses.  It models a four channel, 16 bit instrument.
type Mock struct {
	sync.Mutex

	// Log holds every command and query in order; binary writes are
	// recorded with their block header
	Log []string

	// Responses maps queries to answers
	Responses map[string]string

	// Uploads holds the payloads of binary writes in order
	Uploads [][]byte

	// ErrQueue is popped by :SYST:ERR?, which answers "0, no error" when empty
	ErrQueue []string

	// FrameStatus is popped by :DIG:ACQ:FRAM:STAT?; once empty, frames
	// report as captured
	FrameStatus []string

	// Captured is returned by :DIG:DATA:READ?
	Captured []byte
}

// NewMock returns a Mock answering the identification and capacity queries
// of a P9484M
func NewMock() *Mock {
	return &Mock{Responses: map[string]string{
		"*IDN?":               "Tabor Electronics,P9484M,000000000000,mock",
		":SYST:INF:MOD?":      "P9484M",
		":INST:CHAN? MAX":     "4",
		":TRAC:SEL:SEGM? MAX": "65536",
		":TRAC:FREE?":         "4294967296",
	}}
}

// SetCaptured loads interleaved I/Q words, with the 16384 zero level added,
// to be returned by the next frame read
func (m *Mock) SetCaptured(iq IQ) {
	m.Lock()
	defer m.Unlock()
	buf := make([]byte, 8*len(iq.I))
	for k := range iq.I {
		binary.LittleEndian.PutUint32(buf[8*k:], uint32(iq.I[k]+digitizerZero))
		binary.LittleEndian.PutUint32(buf[8*k+4:], uint32(iq.Q[k]+digitizerZero))
	}
	m.Captured = buf
}

// Commands returns a copy of the log
func (m *Mock) Commands() []string {
	m.Lock()
	defer m.Unlock()
	return append([]string(nil), m.Log...)
}

// Write records cmds as a single line
func (m *Mock) Write(cmds ...string) error {
	m.Lock()
	defer m.Unlock()
	m.Log = append(m.Log, strings.Join(cmds, " "))
	return nil
}

// ReadString records the query and answers it
func (m *Mock) ReadString(cmds ...string) (string, error) {
	m.Lock()
	defer m.Unlock()
	q := strings.Join(cmds, " ")
	m.Log = append(m.Log, q)
	switch q {
	case ":SYST:ERR?":
		if len(m.ErrQueue) == 0 {
			return "0, no error", nil
		}
		e := m.ErrQueue[0]
		m.ErrQueue = m.ErrQueue[1:]
		return e, nil
	case ":DIG:ACQ:FRAM:STAT?":
		if len(m.FrameStatus) == 0 {
			return "1,1,0,1", nil
		}
		s := m.FrameStatus[0]
		m.FrameStatus = m.FrameStatus[1:]
		return s, nil
	case ":DIG:DATA:SIZE?":
		return strconv.Itoa(len(m.Captured)), nil
	}
	if r, ok := m.Responses[q]; ok {
		return r, nil
	}
	return "", errors.Wrap(ErrNoMockResponse, q)
}

// WriteBinary records the command with its block header and keeps the payload
func (m *Mock) WriteBinary(cmd string, data []byte) error {
	m.Lock()
	defer m.Unlock()
	m.Log = append(m.Log, cmd+" "+scpi.BlockHeader(len(data)))
	m.Uploads = append(m.Uploads, append([]byte(nil), data...))
	return nil
}

// ReadBinary records the query and returns the captured frames
func (m *Mock) ReadBinary(cmd string) ([]byte, error) {
	m.Lock()
	defer m.Unlock()
	m.Log = append(m.Log, cmd)
	if cmd != ":DIG:DATA:READ?" {
		return nil, errors.Wrap(ErrNoMockResponse, cmd)
	}
	return append([]byte(nil), m.Captured...), nil
}
