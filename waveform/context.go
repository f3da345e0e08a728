package waveform

import "github.com/pkg/errors"

// SamplingContext describes the clocking of the generator.  It is built once
// per session and passed by value to every synthesis call.
type SamplingContext struct {
	// SampleRate is the DAC sampling clock (SCLK) in samples per second
	SampleRate float64 `json:"sampleRate" yaml:"SampleRate" koanf:"SampleRate"`

	// Interpolation is the digital up-conversion interpolation factor
	Interpolation int `json:"interpolation" yaml:"Interpolation" koanf:"Interpolation"`
}

// NewSamplingContext returns a validated SamplingContext
func NewSamplingContext(sampleRate float64, interpolation int) (SamplingContext, error) {
	c := SamplingContext{SampleRate: sampleRate, Interpolation: interpolation}
	return c, c.Validate()
}

// Validate checks that the sample rate is positive and the interpolation
// factor is at least one
func (c SamplingContext) Validate() error {
	if err := positive("sample rate", c.SampleRate); err != nil {
		return err
	}
	if c.Interpolation < 1 {
		return errors.Wrapf(ErrInvalidParameter, "interpolation factor must be >= 1, got %d", c.Interpolation)
	}
	return nil
}

// DeltaT is the time between two successive output samples, in seconds,
// including the effect of interpolation
func (c SamplingContext) DeltaT() float64 {
	return float64(c.Interpolation) / c.SampleRate
}

// carrierCycles converts a physical frequency into the number of carrier
// cycles per unit of a normalized time axis that spans two units over n samples
func (c SamplingContext) carrierCycles(frequency float64, n int) float64 {
	return frequency * float64(n) * float64(c.Interpolation) / 2 / c.SampleRate
}
