package waveform

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// readoutGapLength is the number of zero samples between the readout
	// tone and its marker
	readoutGapLength = 10 * MinSegmentLength

	// readoutMarkerLength is the length of the triangular timing marker
	readoutMarkerLength = MinSegmentLength
)

// ReadoutParams describes a readout tone followed by a timing marker
type ReadoutParams struct {
	Amplitude float64 `json:"amplitude"`

	// Frequency of the tone, in Hz
	Frequency float64 `json:"frequency"`

	// Periods is the number of periods of the tone
	Periods int `json:"periods"`

	// PhaseShift in radians
	PhaseShift float64 `json:"phaseShift"`
}

// Readout synthesizes Periods periods of A sin(x+φ), then a gap of zeros,
// then a triangular marker rising from 0 to A and back.  A single period is
// quantized and repeated, so every period has the same compliant length.
//
// The position of the first crest of the tone, corrected for the phase
// shift, is reported together with the time from that crest to the apex of
// the marker and the time between two crests.  The in-phase channel holds
// the whole signal; the quadrature channel is zero.
//
// Aux keys: first_peak_index, distance_1stpeak_marker_in_time,
// distance_bw_2_peaks_in_time, gap_length, marker_length.
func (s Synthesizer) Readout(p ReadoutParams) (PulseEnvelope, error) {
	if err := finite("amplitude", p.Amplitude); err != nil {
		return PulseEnvelope{}, err
	}
	if err := finite("phase shift", p.PhaseShift); err != nil {
		return PulseEnvelope{}, err
	}
	if err := positive("frequency", p.Frequency); err != nil {
		return PulseEnvelope{}, err
	}
	if p.Periods < 1 {
		return PulseEnvelope{}, errors.Wrapf(ErrInvalidParameter, "number of periods must be >= 1, got %d", p.Periods)
	}
	dt := s.Ctx.DeltaT()
	diags := s.start()
	q, err := quantizeNamed("readout period", rawLength(1/p.Frequency, dt))
	if err != nil {
		return PulseEnvelope{}, err
	}
	diags = noteQuantization(diags, "readout period", q)
	period := q.Quantized
	if err = withinMax("readout", float64(period)*float64(p.Periods)+readoutGapLength+readoutMarkerLength); err != nil {
		return PulseEnvelope{}, err
	}
	tone := period * p.Periods

	c := carrier{
		n: tone, lo: 0, hi: float64(p.Periods),
		cycles: 1,
		phase:  p.PhaseShift,
		wI:     1,
		envI:   constant(p.Amplitude)}
	t, i, _, _ := c.render()

	total := tone + readoutGapLength + readoutMarkerLength
	sig := make([]float64, total)
	copy(sig, i)
	half := readoutMarkerLength / 2
	base := tone + readoutGapLength
	for k := 0; k < half; k++ {
		sig[base+k] = p.Amplitude * float64(k) / float64(half)
		sig[base+half+k] = p.Amplitude * (1 - float64(k)/float64(half))
	}
	// extend the time axis for the plot hook, one period per unit
	ts := make([]float64, total)
	copy(ts, t)
	for k := tone; k < total; k++ {
		ts[k] = float64(k) / float64(period)
	}

	shift := math.Trunc(p.PhaseShift / (2 * math.Pi) * float64(period))
	first := math.Trunc(float64(period)/4 - shift)
	distance := float64(total) - float64(half) - first

	return s.finish(PulseEnvelope{
		Name:       "readout",
		InPhase:    sig,
		Quadrature: make([]float64, total),
		Envelope:   append([]float64(nil), sig...),
		Aux: map[string]float64{
			"first_peak_index":                first,
			"distance_1stpeak_marker_in_time": distance * dt,
			"distance_bw_2_peaks_in_time":     float64(period) * dt,
			"gap_length":                      readoutGapLength,
			"marker_length":                   readoutMarkerLength},
		Diagnostics: diags}, ts), nil
}
