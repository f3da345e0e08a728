package waveform

import "math"

// TrapezoidParams describes a Rabi pulse: a sine ramp up, a flat plateau,
// and a mirrored ramp down
type TrapezoidParams struct {
	Amplitude float64 `json:"amplitude"`

	// SlopeWidth is the duration of each ramp, in seconds
	SlopeWidth float64 `json:"slopeWidth"`

	// PlateauWidth is the duration of the plateau, in seconds
	PlateauWidth float64 `json:"plateauWidth"`

	// Frequency of the carrier, in Hz
	Frequency float64 `json:"frequency"`
}

// Trapezoid synthesizes a Rabi pulse.  The slope and plateau are quantized
// independently, so each piece is a compliant length and the total is
// 2*slope + plateau.  The ramps include both of their endpoints.
//
// Aux keys: slope_length, plateau_length, carrier_cycles.
func (s Synthesizer) Trapezoid(p TrapezoidParams) (PulseEnvelope, error) {
	if err := finite("amplitude", p.Amplitude); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("slope width", p.SlopeWidth); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("plateau width", p.PlateauWidth); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("frequency", p.Frequency); err != nil {
		return PulseEnvelope{}, err
	}
	dt := s.Ctx.DeltaT()
	diags := s.start()
	slope, err := quantizeNamed("slope", rawLength(p.SlopeWidth, dt))
	if err != nil {
		return PulseEnvelope{}, err
	}
	diags = noteQuantization(diags, "slope", slope)
	plateau, err := quantizeNamed("plateau", rawLength(p.PlateauWidth, dt))
	if err != nil {
		return PulseEnvelope{}, err
	}
	diags = noteQuantization(diags, "plateau", plateau)

	ns, np := slope.Quantized, plateau.Quantized
	if err = withinMax("trapezoid", float64(2*ns+np)); err != nil {
		return PulseEnvelope{}, err
	}
	total := 2*ns + np
	shape := make([]float64, total)
	for k := 0; k < ns; k++ {
		v := math.Sin(math.Pi / 2 * float64(k) / float64(ns-1))
		shape[k] = v
		shape[total-1-k] = v
	}
	for k := ns; k < ns+np; k++ {
		shape[k] = 1
	}

	cycles := sineEnvelopeCarrierScale * s.Ctx.carrierCycles(p.Frequency, total)
	c := carrier{
		n: total, lo: 0, hi: 1,
		cycles: cycles,
		wI:     1, wQ: 1,
		envI: func(k int, _ float64) float64 { return p.Amplitude * shape[k] }}
	t, i, q, env := c.render()
	return s.finish(PulseEnvelope{
		Name:       "trapezoid",
		InPhase:    i,
		Quadrature: q,
		Envelope:   env,
		Aux: map[string]float64{
			"slope_length":   float64(ns),
			"plateau_length": float64(np),
			"carrier_cycles": cycles},
		Diagnostics: diags}, t), nil
}
