package waveform

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// SegmentQuantum is the granularity of segment memory, in samples
	SegmentQuantum = 64

	// MinSegmentLength is the shortest segment the memory accepts, 64*32
	MinSegmentLength = SegmentQuantum * 32

	// MaxSegmentLength is the longest waveform synthesized, 64*(32+524256)
	// points or about 16 ms at 2 GSa/s
	MaxSegmentLength = 1 << 25
)

// QuantizedLength is the result of mapping a requested sample count onto
// the segment memory format 64*(32+n)
type QuantizedLength struct {
	// Requested is the sample count asked for, possibly fractional
	Requested float64 `json:"requested"`

	// Quantized is the compliant sample count
	Quantized int `json:"quantized"`

	// NormalizationFactor is Quantized/Requested if the length was
	// adjusted, otherwise exactly 1
	NormalizationFactor float64 `json:"normalizationFactor"`

	adjusted bool
	floored  bool
}

// Quantize maps requested onto the nearest compliant segment length at or
// below it, with a floor of MinSegmentLength.  Lengths under the floor are
// grown to it.  Requested must be positive, finite and at most
// MaxSegmentLength.
func Quantize(requested float64) (QuantizedLength, error) {
	if err := positive("requested length", requested); err != nil {
		return QuantizedLength{}, err
	}
	if err := withinMax("requested length", requested); err != nil {
		return QuantizedLength{}, err
	}
	n := requested/SegmentQuantum - 32
	if n >= 0 && n == math.Trunc(n) {
		return QuantizedLength{
			Requested:           requested,
			Quantized:           int(requested),
			NormalizationFactor: 1}, nil
	}
	floored := false
	if n < 0 {
		n = 0
		floored = true
	} else {
		n = math.Floor(n)
	}
	q := SegmentQuantum * (32 + int(n))
	return QuantizedLength{
		Requested:           requested,
		Quantized:           q,
		NormalizationFactor: float64(q) / requested,
		adjusted:            true,
		floored:             floored}, nil
}

// Compliant returns true if n is a valid segment length
func Compliant(n int) bool {
	return n >= MinSegmentLength && n%SegmentQuantum == 0
}

// Adjusted returns true if quantization changed the requested length
func (q QuantizedLength) Adjusted() bool {
	return q.adjusted
}

// Floored returns true if the requested length was below MinSegmentLength
// and was grown to it
func (q QuantizedLength) Floored() bool {
	return q.floored
}

// Warning returns the diagnostic describing the adjustment, and false if
// the length was already compliant
func (q QuantizedLength) Warning() (Diagnostic, bool) {
	if !q.adjusted {
		return Diagnostic{}, false
	}
	msg := fmt.Sprintf("segment of %g points does not satisfy 64*(32+n), adjusted to %d", q.Requested, q.Quantized)
	if q.floored {
		msg = fmt.Sprintf("segment of %g points is below the %d point minimum, grown to %d", q.Requested, MinSegmentLength, q.Quantized)
	}
	return Diagnostic{
		Kind:      KindQuantization,
		Message:   msg,
		Requested: q.Requested,
		Adjusted:  q.Quantized,
		Floor:     q.floored}, true
}

// withinMax checks a sample count against MaxSegmentLength, before any
// conversion to int
func withinMax(name string, n float64) error {
	if n > MaxSegmentLength {
		return errors.Wrapf(ErrInvalidParameter, "%s of %g points exceeds the %d point maximum", name, n, MaxSegmentLength)
	}
	return nil
}

// quantizeNamed is Quantize with the name of the quantity attached to any error
func quantizeNamed(name string, requested float64) (QuantizedLength, error) {
	q, err := Quantize(requested)
	if err != nil {
		return q, errors.Wrap(err, name)
	}
	return q, nil
}
