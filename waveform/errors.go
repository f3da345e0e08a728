package waveform

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidParameter is generated when a physical parameter passed to a
// synthesis call is non-positive or not finite
var ErrInvalidParameter = errors.New("invalid parameter")

// positive returns an error wrapping ErrInvalidParameter if v is not a
// finite number greater than zero
func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "%s must be positive and finite, got %g", name, v)
	}
	return nil
}

// finite returns an error wrapping ErrInvalidParameter if v is NaN or infinite
func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.Wrapf(ErrInvalidParameter, "%s must be finite, got %g", name, v)
	}
	return nil
}
