package proteus

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/qctl/proteus/util"
	"github.com/qctl/proteus/waveform"
)

// DigitalConv maps samples in [-1, 1] onto DAC codes in [0, maxDAC].
// -1 maps to 0 and 0 to maxDAC/2; values outside [-1, 1] are clipped.
// Halves round to even.
func DigitalConv(x []float64, maxDAC int) []uint16 {
	half := float64(maxDAC / 2)
	out := make([]uint16, len(x))
	for i, v := range x {
		out[i] = uint16(util.Clamp(math.RoundToEven((v+1)*half), 0, float64(maxDAC)))
	}
	return out
}

// Encode packs DAC codes into the byte layout of the waveform memory:
// one byte per point for 8 bit models, little endian uint16 otherwise
func Encode(codes []uint16, bits int) ([]byte, error) {
	switch bits {
	case 8:
		out := make([]byte, len(codes))
		for i, c := range codes {
			if c > math.MaxUint8 {
				return nil, errors.Errorf("code %d at %d does not fit in 8 bits", c, i)
			}
			out[i] = byte(c)
		}
		return out, nil
	case 16:
		out := make([]byte, 2*len(codes))
		for i, c := range codes {
			binary.LittleEndian.PutUint16(out[2*i:], c)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported DAC width %d bits", bits)
	}
}

// Download converts samples to DAC codes and stores them in segment seg of
// channel ch, then selects that segment for playback and turns the output on
func (in *Instrument) Download(ch, seg int, samples []float64) error {
	if !waveform.Compliant(len(samples)) {
		return errors.Wrapf(ErrSegmentLength, "%d points", len(samples))
	}
	if err := in.checkChannel(ch); err != nil {
		return err
	}
	if err := in.checkSegment(seg); err != nil {
		return err
	}
	data, err := Encode(DigitalConv(samples, in.Info.MaxDAC), in.Info.DACBits)
	if err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	err = in.send(
		fmt.Sprintf(":INST:CHAN %d", ch),
		fmt.Sprintf(":TRAC:DEF %d,%d", seg, len(samples)),
		fmt.Sprintf(":TRAC:SEL %d", seg))
	if err != nil {
		return err
	}
	if err = in.d.WriteBinary(":TRAC:DATA", data); err != nil {
		return errors.Wrap(err, "segment upload")
	}
	err = in.send(
		fmt.Sprintf(":SOUR:FUNC:MODE:SEGM %d", seg),
		":OUTP ON")
	if err != nil {
		return err
	}
	in.logger().Debug("segment downloaded", "channel", ch, "segment", seg, "points", len(samples), "bytes", len(data))
	return in.checkErrors("download")
}
