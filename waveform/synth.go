package waveform

import (
	"fmt"
	"math"
)

// PulseEnvelope is the result of one synthesis call.  The caller owns the
// slices; nothing in this package retains them.
type PulseEnvelope struct {
	// Name is the pulse family that produced the envelope
	Name string `json:"name"`

	// InPhase is the I channel, the sine-carrier product
	InPhase []float64 `json:"inPhase"`

	// Quadrature is the Q channel, the cosine-carrier product
	Quadrature []float64 `json:"quadrature"`

	// Envelope is the carrier-free envelope, or the full signal for
	// families that have no separate envelope
	Envelope []float64 `json:"envelope"`

	// Length is the number of samples in each of the arrays
	Length int `json:"length"`

	// Aux holds family-specific scalars, see the documentation of each
	// Synthesizer method for the keys it populates
	Aux map[string]float64 `json:"aux"`

	// Diagnostics holds any non-fatal observations made while synthesizing
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// HasDiagnostic returns true if a diagnostic of kind k was recorded
func (p PulseEnvelope) HasDiagnostic(k Kind) bool {
	for _, d := range p.Diagnostics {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// Synthesizer produces pulse envelopes for one SamplingContext.
// Sink and Plot are optional.
type Synthesizer struct {
	Ctx  SamplingContext
	Sink Sink
	Plot PlotFunc
}

// envelopeFunc evaluates an envelope at sample k, normalized time t
type envelopeFunc func(k int, t float64) float64

// carrier is the template every modulated family is an instance of:
// a half-open time axis of n samples over [lo, hi), an envelope on that
// axis, and a sin/cos carrier pair of cycles periods per unit of t
type carrier struct {
	n      int
	lo, hi float64
	cycles float64
	phase  float64
	wI, wQ float64
	envI   envelopeFunc
	envQ   envelopeFunc
}

// render evaluates the template.  If envQ is nil the quadrature channel
// shares the in-phase envelope.
func (c carrier) render() (t, i, q, env []float64) {
	t = make([]float64, c.n)
	i = make([]float64, c.n)
	q = make([]float64, c.n)
	env = make([]float64, c.n)
	step := (c.hi - c.lo) / float64(c.n)
	for k := 0; k < c.n; k++ {
		tk := c.lo + step*float64(k)
		arg := 2*math.Pi*tk*c.cycles + c.phase
		e := c.envI(k, tk)
		eq := e
		if c.envQ != nil {
			eq = c.envQ(k, tk)
		}
		t[k] = tk
		env[k] = e
		i[k] = c.wI * math.Sin(arg) * e
		q[k] = c.wQ * math.Cos(arg) * eq
	}
	return
}

// constant returns an envelope that is a everywhere
func constant(a float64) envelopeFunc {
	return func(int, float64) float64 { return a }
}

// rawLength converts a duration in seconds into a sample count, snapping
// values within rounding error of an integer onto it so that
// floating-point noise does not make a compliant length look fractional
func rawLength(seconds, dt float64) float64 {
	x := seconds / dt
	r := math.Round(x)
	if math.Abs(x-r) <= 1e-9*math.Max(1, math.Abs(x)) {
		return r
	}
	return x
}

// start returns the diagnostics every call begins with
func (s Synthesizer) start() []Diagnostic {
	if s.Ctx.Interpolation == 1 {
		return nil
	}
	return []Diagnostic{{
		Kind:    KindInterpolation,
		Message: fmt.Sprintf("interpolation factor is %d, sample counts refer to stored samples", s.Ctx.Interpolation),
	}}
}

// noteQuantization appends the quantization warning of q, if any
func noteQuantization(diags []Diagnostic, what string, q QuantizedLength) []Diagnostic {
	if d, ok := q.Warning(); ok {
		d.Message = what + ": " + d.Message
		return append(diags, d)
	}
	return diags
}

// finish forwards diagnostics to the sink and invokes the plot hook
func (s Synthesizer) finish(p PulseEnvelope, t []float64) PulseEnvelope {
	p.Length = len(p.InPhase)
	if s.Sink != nil {
		for _, d := range p.Diagnostics {
			s.Sink.Emit(p.Name, d)
		}
	}
	if s.Plot != nil {
		s.Plot(p.Name, t, p.InPhase, p.Quadrature)
	}
	return p
}
