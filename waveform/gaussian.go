package waveform

import (
	"fmt"
	"math"
)

// GaussianParams describes a Gaussian pulse
type GaussianParams struct {
	// IWeight and QWeight scale the in-phase and quadrature channels
	IWeight float64 `json:"iWeight"`
	QWeight float64 `json:"qWeight"`

	// Amplitude scales the envelope, nominally in [0, 1]
	Amplitude float64 `json:"amplitude"`

	// Sigma is the standard deviation of the envelope, in seconds
	Sigma float64 `json:"sigma"`

	// WidthOverSigma is the total width of the pulse in units of Sigma;
	// 4 or 5 are customary
	WidthOverSigma float64 `json:"widthOverSigma"`

	// Frequency is the carrier frequency, in Hz
	Frequency float64 `json:"frequency"`
}

func (p GaussianParams) validate() error {
	for _, v := range []struct {
		name string
		v    float64
	}{{"I weight", p.IWeight}, {"Q weight", p.QWeight}, {"amplitude", p.Amplitude}} {
		if err := finite(v.name, v.v); err != nil {
			return err
		}
	}
	if err := positive("sigma", p.Sigma); err != nil {
		return err
	}
	if err := positive("width over sigma", p.WidthOverSigma); err != nil {
		return err
	}
	return positive("frequency", p.Frequency)
}

// DRAGParams describes a Gaussian pulse with a derivative removal term on
// the quadrature channel
type DRAGParams struct {
	GaussianParams

	// Beta is the DRAG coefficient
	Beta float64 `json:"beta"`
}

// gaussianShape holds the quantities shared by Gaussian and DRAG
type gaussianShape struct {
	q      QuantizedLength
	sigmaS float64 // sigma in samples
	sigmaN float64 // sigma on the [-1, 1) axis
	cycles float64
	diags  []Diagnostic
}

func (s Synthesizer) gaussianShape(p GaussianParams) (gaussianShape, error) {
	var g gaussianShape
	if err := p.validate(); err != nil {
		return g, err
	}
	dt := s.Ctx.DeltaT()
	g.diags = s.start()
	g.sigmaS = p.Sigma / dt
	q, err := quantizeNamed("gaussian width", rawLength(p.WidthOverSigma*p.Sigma, dt))
	if err != nil {
		return g, err
	}
	g.q = q
	g.diags = noteQuantization(g.diags, "gaussian width", q)
	// the DUC divides the carrier by the interpolation factor
	if period := float64(s.Ctx.Interpolation) / p.Frequency; 5*period > p.Sigma {
		g.diags = append(g.diags, Diagnostic{
			Kind:    KindSlowCarrier,
			Message: fmt.Sprintf("sigma %g s is comparable to the carrier period %g s", p.Sigma, period),
		})
	}
	g.sigmaN = g.sigmaS / float64(q.Quantized)
	g.cycles = s.Ctx.carrierCycles(p.Frequency, q.Quantized)
	return g, nil
}

// envelope returns the area-normalized Gaussian on [-1, 1), divided by the
// normalization factor so the area matches the unquantized pulse
func (g gaussianShape) envelope(amplitude float64) envelopeFunc {
	scale := amplitude / g.sigmaN / math.Sqrt(2*math.Pi) / 2 / g.q.NormalizationFactor
	den := 2 * g.sigmaN * g.sigmaN
	return func(_ int, t float64) float64 {
		return scale * math.Exp(-t*t/den)
	}
}

func (g gaussianShape) aux(p GaussianParams) map[string]float64 {
	return map[string]float64{
		"requested_length":     g.q.Requested,
		"normalization_factor": g.q.NormalizationFactor,
		"sigma_samples":        g.sigmaS,
		"sigma_normalized":     g.sigmaN,
		"carrier_cycles":       g.cycles,
		"frequency":            p.Frequency,
	}
}

// Gaussian synthesizes a Gaussian pulse on a sine/cosine carrier.  A
// slow-carrier diagnostic is recorded when five carrier periods exceed
// Sigma, the period being Interpolation/Frequency since the up-converter
// divides the carrier by the interpolation factor.
//
// Aux keys: requested_length, normalization_factor, sigma_samples,
// sigma_normalized, carrier_cycles, frequency.
func (s Synthesizer) Gaussian(p GaussianParams) (PulseEnvelope, error) {
	g, err := s.gaussianShape(p)
	if err != nil {
		return PulseEnvelope{}, err
	}
	c := carrier{
		n: g.q.Quantized, lo: -1, hi: 1,
		cycles: g.cycles,
		wI:     p.IWeight, wQ: p.QWeight,
		envI: g.envelope(p.Amplitude)}
	t, i, q, env := c.render()
	return s.finish(PulseEnvelope{
		Name:        "gaussian",
		InPhase:     i,
		Quadrature:  q,
		Envelope:    env,
		Aux:         g.aux(p),
		Diagnostics: g.diags}, t), nil
}

// DRAG synthesizes a Gaussian pulse whose quadrature envelope is multiplied
// by (1 - 2*beta*t/sigma).  The quadrature channel is not rescaled and may
// leave [-1, 1] for large beta; clipping is left to the caller, and the
// largest magnitude is reported as quadrature_peak.
//
// Aux keys: those of Gaussian plus beta and quadrature_peak.
func (s Synthesizer) DRAG(p DRAGParams) (PulseEnvelope, error) {
	if err := finite("beta", p.Beta); err != nil {
		return PulseEnvelope{}, err
	}
	g, err := s.gaussianShape(p.GaussianParams)
	if err != nil {
		return PulseEnvelope{}, err
	}
	base := g.envelope(p.Amplitude)
	drag := func(k int, t float64) float64 {
		return (1 - 2*p.Beta*t/g.sigmaN) * base(k, t)
	}
	c := carrier{
		n: g.q.Quantized, lo: -1, hi: 1,
		cycles: g.cycles,
		wI:     p.IWeight, wQ: p.QWeight,
		envI: base,
		envQ: drag}
	t, i, q, env := c.render()
	aux := g.aux(p.GaussianParams)
	aux["beta"] = p.Beta
	aux["quadrature_peak"] = peak(q)
	return s.finish(PulseEnvelope{
		Name:        "drag",
		InPhase:     i,
		Quadrature:  q,
		Envelope:    env,
		Aux:         aux,
		Diagnostics: g.diags}, t), nil
}

// peak returns the largest absolute value in x
func peak(x []float64) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
