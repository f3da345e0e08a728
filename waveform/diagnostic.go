package waveform

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Kind classifies a Diagnostic
type Kind int

const (
	// KindQuantization is emitted when a segment length was changed to
	// satisfy the memory format
	KindQuantization Kind = iota

	// KindSlowCarrier is emitted when five carrier periods do not fit in
	// one sigma of a Gaussian envelope
	KindSlowCarrier

	// KindInterpolation is emitted when the interpolation factor is not 1,
	// as a reminder that sample counts refer to stored, not output, samples
	KindInterpolation
)

func (k Kind) String() string {
	switch k {
	case KindQuantization:
		return "quantization"
	case KindSlowCarrier:
		return "slow-carrier"
	case KindInterpolation:
		return "interpolation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler so diagnostics read well
// in JSON
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic is a non-fatal observation made during synthesis
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Requested and Adjusted are populated for KindQuantization
	Requested float64 `json:"requested,omitempty"`
	Adjusted  int     `json:"adjusted,omitempty"`

	// Floor is true when the 2048 point hardware minimum was applied
	Floor bool `json:"floor,omitempty"`
}

func (d Diagnostic) String() string {
	return d.Kind.String() + ": " + d.Message
}

// Sink receives diagnostics as they are produced.  A Sink used with Batch
// must be safe for concurrent use.
type Sink interface {
	Emit(pulse string, d Diagnostic)
}

// SinkFunc adapts an ordinary function to the Sink interface
type SinkFunc func(pulse string, d Diagnostic)

// Emit calls f
func (f SinkFunc) Emit(pulse string, d Diagnostic) {
	f(pulse, d)
}

// LogSink writes diagnostics to a charm logger at warn level
type LogSink struct {
	Logger *log.Logger
}

// Emit logs d with structured fields
func (s LogSink) Emit(pulse string, d Diagnostic) {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	kv := []interface{}{"pulse", pulse, "kind", d.Kind.String()}
	if d.Kind == KindQuantization {
		kv = append(kv, "requested", d.Requested, "adjusted", d.Adjusted, "floor", d.Floor)
	}
	l.Warn(d.Message, kv...)
}

// PlotFunc is an optional visualization hook, called once per synthesized
// pulse with its normalized time axis and I/Q arrays
type PlotFunc func(pulse string, t, i, q []float64)
