package waveform

import (
	"math"

	"github.com/pkg/errors"
)

// BlankParams describes a DC segment
type BlankParams struct {
	// Bias is the DC level, in [-1, 1]
	Bias float64 `json:"bias"`
}

// SineParams describes a single period of a sinusoid
type SineParams struct {
	Amplitude float64 `json:"amplitude"`

	// Frequency in Hz
	Frequency float64 `json:"frequency"`

	// PhaseShift in radians
	PhaseShift float64 `json:"phaseShift"`
}

// SineEnvelopeParams describes a pulse with a half-sine envelope
type SineEnvelopeParams struct {
	Amplitude float64 `json:"amplitude"`

	// Width of the pulse, in seconds
	Width float64 `json:"width"`

	// Frequency of the carrier, in Hz
	Frequency float64 `json:"frequency"`
}

// sineEnvelopeCarrierScale multiplies the carrier cycle count of the
// sine-envelope and trapezoid families
const sineEnvelopeCarrierScale = 5

// Blank returns MinSegmentLength samples of the constant bias on the
// in-phase channel, with a zero quadrature channel.
//
// Aux keys: duration.
func (s Synthesizer) Blank(bias float64) (PulseEnvelope, error) {
	if err := finite("bias", bias); err != nil {
		return PulseEnvelope{}, err
	}
	if bias < -1 || bias > 1 {
		return PulseEnvelope{}, errors.Wrapf(ErrInvalidParameter, "bias must be in [-1, 1], got %g", bias)
	}
	n := MinSegmentLength
	t := make([]float64, n)
	i := make([]float64, n)
	env := make([]float64, n)
	for k := range i {
		t[k] = float64(k) / float64(n)
		i[k] = bias
		env[k] = bias
	}
	return s.finish(PulseEnvelope{
		Name:        "blank",
		InPhase:     i,
		Quadrature:  make([]float64, n),
		Envelope:    env,
		Aux:         map[string]float64{"duration": float64(n) * s.Ctx.DeltaT()},
		Diagnostics: s.start()}, t), nil
}

// Sine returns exactly one period of a sinusoid, I = A sin(x+φ) and
// Q = A cos(x+φ) over x in [0, 2π).  The period is stretched or shrunk to a
// compliant length, so the realized frequency may differ from the request;
// it is reported in Aux.
//
// Aux keys: requested_length, normalization_factor, frequency.
func (s Synthesizer) Sine(p SineParams) (PulseEnvelope, error) {
	if err := finite("amplitude", p.Amplitude); err != nil {
		return PulseEnvelope{}, err
	}
	if err := finite("phase shift", p.PhaseShift); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("frequency", p.Frequency); err != nil {
		return PulseEnvelope{}, err
	}
	dt := s.Ctx.DeltaT()
	diags := s.start()
	q, err := quantizeNamed("sine period", rawLength(1/p.Frequency, dt))
	if err != nil {
		return PulseEnvelope{}, err
	}
	diags = noteQuantization(diags, "sine period", q)
	c := carrier{
		n: q.Quantized, lo: 0, hi: 1,
		cycles: 1,
		phase:  p.PhaseShift,
		wI:     1, wQ: 1,
		envI: constant(p.Amplitude)}
	t, i, qd, _ := c.render()
	return s.finish(PulseEnvelope{
		Name:       "sine",
		InPhase:    i,
		Quadrature: qd,
		Envelope:   append([]float64(nil), i...),
		Aux: map[string]float64{
			"requested_length":     q.Requested,
			"normalization_factor": q.NormalizationFactor,
			"frequency":            1 / (float64(q.Quantized) * dt)},
		Diagnostics: diags}, t), nil
}

// SineEnvelope synthesizes a carrier under a half-sine envelope A sin(πt),
// t in [0, 1).  The envelope is peak normalized and is not compensated for
// quantization.
//
// Aux keys: requested_length, normalization_factor, carrier_cycles.
func (s Synthesizer) SineEnvelope(p SineEnvelopeParams) (PulseEnvelope, error) {
	if err := finite("amplitude", p.Amplitude); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("width", p.Width); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("frequency", p.Frequency); err != nil {
		return PulseEnvelope{}, err
	}
	dt := s.Ctx.DeltaT()
	diags := s.start()
	q, err := quantizeNamed("sine envelope width", rawLength(p.Width, dt))
	if err != nil {
		return PulseEnvelope{}, err
	}
	diags = noteQuantization(diags, "sine envelope width", q)
	cycles := sineEnvelopeCarrierScale * s.Ctx.carrierCycles(p.Frequency, q.Quantized)
	c := carrier{
		n: q.Quantized, lo: 0, hi: 1,
		cycles: cycles,
		wI:     1, wQ: 1,
		envI: func(_ int, t float64) float64 { return p.Amplitude * math.Sin(math.Pi*t) }}
	t, i, qd, env := c.render()
	return s.finish(PulseEnvelope{
		Name:       "sine-envelope",
		InPhase:    i,
		Quadrature: qd,
		Envelope:   env,
		Aux: map[string]float64{
			"requested_length":     q.Requested,
			"normalization_factor": q.NormalizationFactor,
			"carrier_cycles":       cycles},
		Diagnostics: diags}, t), nil
}
