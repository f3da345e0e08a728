package proteus

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/qctl/proteus/scpi"
	"github.com/qctl/proteus/waveform"
)

// Driver is the external instrument driver: commands, queries, and binary
// transfers.  *scpi.SCPI satisfies it.
type Driver interface {
	Write(cmds ...string) error
	ReadString(cmds ...string) (string, error)
	WriteBinary(cmd string, data []byte) error
	ReadBinary(cmd string) ([]byte, error)
}

// modelWith8BitDAC is the model whose waveform memory holds 8 bit points
const modelWith8BitDAC = "P9082"

var (
	// ErrBadChannel is generated when a channel number is outside [1, Channels]
	ErrBadChannel = errors.New("channel out of range")

	// ErrBadSegment is generated when a segment number is outside [1, MaxSegment]
	ErrBadSegment = errors.New("segment out of range")

	// ErrSegmentLength is generated when a waveform does not satisfy the
	// 64*(32+n) segment memory format
	ErrSegmentLength = errors.New("segment length does not satisfy 64*(32+n)")
)

// SystemInfo is what the instrument reports about itself on connection
type SystemInfo struct {
	IDN        string `json:"idn"`
	Model      string `json:"model"`
	DACBits    int    `json:"dacBits"`
	MaxDAC     int    `json:"maxDac"`
	Channels   int    `json:"channels"`
	MaxSegment int    `json:"maxSegment"`
	FreeMemory int64  `json:"freeMemory"`
}

// Instrument is a connected Proteus
type Instrument struct {
	mu sync.Mutex
	d  Driver

	// Info is populated by Connect
	Info SystemInfo

	// Logger receives progress messages, log.Default() if nil
	Logger *log.Logger

	// PollInterval and MaxPolls govern Capture
	PollInterval time.Duration
	MaxPolls     int
}

// Connect queries identification and capacity from the driver
func Connect(d Driver) (*Instrument, error) {
	in := &Instrument{d: d, PollInterval: 10 * time.Millisecond, MaxPolls: 1000}
	var err error
	in.Info.IDN, err = d.ReadString("*IDN?")
	if err != nil {
		return nil, errors.Wrap(err, "identify")
	}
	in.Info.Model, err = d.ReadString(":SYST:INF:MOD?")
	if err != nil {
		return nil, errors.Wrap(err, "model")
	}
	if strings.Contains(in.Info.Model, modelWith8BitDAC) {
		in.Info.DACBits, in.Info.MaxDAC = 8, 255
	} else {
		in.Info.DACBits, in.Info.MaxDAC = 16, 65535
	}
	for _, q := range []struct {
		cmd string
		dst *int
	}{{":INST:CHAN? MAX", &in.Info.Channels}, {":TRAC:SEL:SEGM? MAX", &in.Info.MaxSegment}} {
		s, err := d.ReadString(q.cmd)
		if err != nil {
			return nil, errors.Wrap(err, q.cmd)
		}
		if *q.dst, err = strconv.Atoi(strings.TrimSpace(s)); err != nil {
			return nil, errors.Wrapf(err, "parse %s", q.cmd)
		}
	}
	s, err := d.ReadString(":TRAC:FREE?")
	if err != nil {
		return nil, errors.Wrap(err, "free memory")
	}
	if in.Info.FreeMemory, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse free memory")
	}
	in.logger().Info("connected", "idn", in.Info.IDN, "dacBits", in.Info.DACBits,
		"channels", in.Info.Channels, "maxSegment", in.Info.MaxSegment, "freeMemory", in.Info.FreeMemory)
	return in, nil
}

func (in *Instrument) logger() *log.Logger {
	if in.Logger == nil {
		return log.Default()
	}
	return in.Logger
}

// send writes each command in turn, stopping at the first failure
func (in *Instrument) send(cmds ...string) error {
	for _, c := range cmds {
		if err := in.d.Write(c); err != nil {
			return errors.Wrap(err, c)
		}
	}
	return nil
}

// checkErrors pops the head of the error queue
func (in *Instrument) checkErrors(op string) error {
	resp, err := in.d.ReadString(":SYST:ERR?")
	if err != nil {
		return errors.Wrap(err, op)
	}
	if err = scpi.ParseError(resp); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func (in *Instrument) checkChannel(ch int) error {
	if ch < 1 || (in.Info.Channels > 0 && ch > in.Info.Channels) {
		return errors.Wrapf(ErrBadChannel, "channel %d, instrument has %d", ch, in.Info.Channels)
	}
	return nil
}

func (in *Instrument) checkSegment(seg int) error {
	if seg < 1 || (in.Info.MaxSegment > 0 && seg > in.Info.MaxSegment) {
		return errors.Wrapf(ErrBadSegment, "segment %d, instrument allows %d", seg, in.Info.MaxSegment)
	}
	return nil
}

// IDN returns the identification string read on connection
func (in *Instrument) IDN() (string, error) {
	return in.Info.IDN, nil
}

// Errors drains the error queue of the instrument
func (in *Instrument) Errors() (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	var msgs []string
	for i := 0; i < 64; i++ {
		resp, err := in.d.ReadString(":SYST:ERR?")
		if err != nil {
			return strings.Join(msgs, "\n"), err
		}
		if scpi.ParseError(resp) == nil {
			break
		}
		msgs = append(msgs, resp)
	}
	return strings.Join(msgs, "\n"), nil
}

// InitChannel resets the instrument and prepares channel ch to play
// segments at the sample rate and interpolation of ctx.  All segments of
// the channel are deleted.
func (in *Instrument) InitChannel(ch int, ctx waveform.SamplingContext) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	if err := in.checkChannel(ch); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	err := in.send(
		"*CLS; *RST",
		fmt.Sprintf(":SOUR:INT X%d", ctx.Interpolation),
		fmt.Sprintf(":INST:CHAN %d", ch),
		fmt.Sprintf(":FREQ:RAST %g", ctx.SampleRate),
		":INIT:CONT ON",
		":TRAC:DEL:ALL")
	if err != nil {
		return err
	}
	return in.checkErrors("init channel")
}

// Close releases the driver, if it holds resources
func (in *Instrument) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if c, ok := in.d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
