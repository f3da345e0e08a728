package proteus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/qctl/proteus/waveform"
)

const (
	// MaxDigitizerRate is the fastest the digitizer can sample, in Sa/s
	MaxDigitizerRate = 2.7e9

	// digitizerZero is the code of 0 V in captured data
	digitizerZero = 16384
)

// ErrCaptureTimeout is generated when the frames are not filled within
// MaxPolls status queries
var ErrCaptureTimeout = errors.New("digitizer did not finish capturing")

// DigitizerConfig holds the settings for complex (I/Q) acquisition
type DigitizerConfig struct {
	// SampleRate of the digitizer, at most MaxDigitizerRate
	SampleRate float64 `json:"sampleRate"`

	// NCO is the demodulator frequency, ideally the source NCO, in Hz
	NCO float64 `json:"nco"`

	// TriggerDelay from the task trigger to the start of capture, in seconds
	TriggerDelay float64 `json:"triggerDelay"`
}

// IQ is demodulated digitizer data with the zero level removed
type IQ struct {
	I []int32 `json:"i"`
	Q []int32 `json:"q"`
}

// SetupDigitizer configures dual-channel complex acquisition triggered by
// the task table
func (in *Instrument) SetupDigitizer(c DigitizerConfig) error {
	if !(c.SampleRate > 0 && c.SampleRate <= MaxDigitizerRate) {
		return errors.Wrapf(waveform.ErrInvalidParameter, "digitizer sample rate %g outside (0, %g]", c.SampleRate, MaxDigitizerRate)
	}
	if math.IsNaN(c.NCO) || math.IsInf(c.NCO, 0) {
		return errors.Wrapf(waveform.ErrInvalidParameter, "NCO frequency must be finite, got %g", c.NCO)
	}
	if !(c.TriggerDelay >= 0) || math.IsInf(c.TriggerDelay, 1) {
		return errors.Wrapf(waveform.ErrInvalidParameter, "trigger delay must be finite and not negative, got %g", c.TriggerDelay)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	err := in.send(
		":DIG:MODE DUAL",
		":DIG:CHAN:RANG HIGH",
		fmt.Sprintf(":DIG:FREQ %g", c.SampleRate),
		":DIG:DDC:MODE COMP",
		":DIG:DDC:DEC X16",
		":DIG:DDC:CLKS AWG",
		fmt.Sprintf(":DIG:DDC:CFR1 %g", c.NCO),
		":DIG:CHAN:SEL 1",
		":DIG:CHAN:STATE ENAB",
		":DIG:TRIG:SOURCE TASK1",
		fmt.Sprintf(":DIG:TRIG:AWG:TDEL %g", c.TriggerDelay))
	if err != nil {
		return err
	}
	return in.checkErrors("setup digitizer")
}

// DefineFrames allocates num frames of length samples each, selects all of
// them for capture and zeroes the acquisition memory
func (in *Instrument) DefineFrames(num, length int) error {
	if num < 1 || length < 1 {
		return errors.Wrapf(waveform.ErrInvalidParameter, "frames must be positive, got %d of %d", num, length)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	err := in.send(
		fmt.Sprintf(":DIG:ACQ:FRAM:DEF %d,%d", num, length),
		":DIG:ACQ:FRAM:CAPT:ALL",
		":DIG:ACQ:ZERO:ALL")
	if err != nil {
		return err
	}
	return in.checkErrors("define frames")
}

// captured reports whether a frame status response says all frames are
// filled, which is signalled by the last field
func captured(status string) bool {
	fields := strings.Split(strings.TrimSpace(status), ",")
	return strings.TrimSpace(fields[len(fields)-1]) == "1"
}

// Capture arms the digitizer and waits until the frames are filled, polling
// at most once per PollInterval.  The digitizer is disarmed on every exit.
func (in *Instrument) Capture(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.send(":DIG:INIT OFF", ":DIG:INIT ON"); err != nil {
		return err
	}
	lim := rate.NewLimiter(rate.Every(in.PollInterval), 1)
	done := false
	var perr error
	for i := 0; i < in.MaxPolls; i++ {
		if perr = lim.Wait(ctx); perr != nil {
			break
		}
		var status string
		status, perr = in.d.ReadString(":DIG:ACQ:FRAM:STAT?")
		if perr != nil {
			perr = errors.Wrap(perr, "frame status")
			break
		}
		if captured(status) {
			in.logger().Debug("capture complete", "polls", i+1, "status", status)
			done = true
			break
		}
	}
	if err := in.send(":DIG:INIT OFF"); err != nil && perr == nil {
		perr = err
	}
	if perr != nil {
		return perr
	}
	if !done {
		return errors.Wrapf(ErrCaptureTimeout, "after %d polls", in.MaxPolls)
	}
	return in.checkErrors("capture")
}

// ReadIQ reads all captured frames of channel ch and separates the
// interleaved I and Q words
func (in *Instrument) ReadIQ(ch int) (IQ, error) {
	var iq IQ
	if err := in.checkChannel(ch); err != nil {
		return iq, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.send(":DIG:DATA:TYPE FRAM", ":DIG:DATA:SEL ALL"); err != nil {
		return iq, err
	}
	resp, err := in.d.ReadString(":DIG:DATA:SIZE?")
	if err != nil {
		return iq, errors.Wrap(err, "data size")
	}
	size, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return iq, errors.Wrap(err, "parse data size")
	}
	if err = in.send(fmt.Sprintf(":DIG:CHAN:SEL %d", ch)); err != nil {
		return iq, err
	}
	data, err := in.d.ReadBinary(":DIG:DATA:READ?")
	if err != nil {
		return iq, errors.Wrap(err, "read frames")
	}
	if len(data) != size {
		return iq, errors.Errorf("digitizer reported %d bytes, sent %d", size, len(data))
	}
	if len(data)%8 != 0 {
		return iq, errors.Errorf("%d bytes is not a whole number of I/Q word pairs", len(data))
	}
	n := len(data) / 8
	iq.I = make([]int32, n)
	iq.Q = make([]int32, n)
	for k := 0; k < n; k++ {
		iq.I[k] = int32(binary.LittleEndian.Uint32(data[8*k:])) - digitizerZero
		iq.Q[k] = int32(binary.LittleEndian.Uint32(data[8*k+4:])) - digitizerZero
	}
	return iq, in.checkErrors("read iq")
}
