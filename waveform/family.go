package waveform

import (
	"fmt"

	"github.com/pkg/errors"
)

// Family enumerates the pulse families
type Family int

const (
	// FamilyBlank is a DC segment
	FamilyBlank Family = iota

	// FamilySine is a single period of a sinusoid
	FamilySine

	// FamilyGaussian is a Gaussian pulse
	FamilyGaussian

	// FamilyDRAG is a Gaussian pulse with DRAG correction
	FamilyDRAG

	// FamilySineEnvelope is a carrier under a half-sine envelope
	FamilySineEnvelope

	// FamilyTrapezoid is a Rabi pulse
	FamilyTrapezoid

	// FamilyReadout is a readout tone with a timing marker
	FamilyReadout
)

// ValidateFamily converts a family name to a Family
// s is a member of {blank, sine, gaussian, drag, sine-envelope, trapezoid, readout}
func ValidateFamily(s string) (Family, error) {
	switch s {
	case "blank":
		return FamilyBlank, nil
	case "sine":
		return FamilySine, nil
	case "gaussian":
		return FamilyGaussian, nil
	case "drag":
		return FamilyDRAG, nil
	case "sine-envelope":
		return FamilySineEnvelope, nil
	case "trapezoid", "rabi":
		return FamilyTrapezoid, nil
	case "readout":
		return FamilyReadout, nil
	default:
		return -1, errors.Wrapf(ErrInvalidParameter,
			"pulse family %q must be a member of {blank, sine, gaussian, drag, sine-envelope, trapezoid, readout}", s)
	}
}

// FormatFamily converts a Family to its name
func FormatFamily(f Family) string {
	switch f {
	case FamilyBlank:
		return "blank"
	case FamilySine:
		return "sine"
	case FamilyGaussian:
		return "gaussian"
	case FamilyDRAG:
		return "drag"
	case FamilySineEnvelope:
		return "sine-envelope"
	case FamilyTrapezoid:
		return "trapezoid"
	case FamilyReadout:
		return "readout"
	default:
		return ""
	}
}

func (f Family) String() string {
	if s := FormatFamily(f); s != "" {
		return s
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// NewParams returns a pointer to the zero parameter struct of family f,
// suitable for decoding into
func NewParams(f Family) (interface{}, error) {
	switch f {
	case FamilyBlank:
		return &BlankParams{}, nil
	case FamilySine:
		return &SineParams{}, nil
	case FamilyGaussian:
		return &GaussianParams{}, nil
	case FamilyDRAG:
		return &DRAGParams{}, nil
	case FamilySineEnvelope:
		return &SineEnvelopeParams{}, nil
	case FamilyTrapezoid:
		return &TrapezoidParams{}, nil
	case FamilyReadout:
		return &ReadoutParams{}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unknown pulse family %d", int(f))
	}
}

// Synthesize dispatches on the type of params, which is one of the
// parameter structs of this package or a pointer to one
func (s Synthesizer) Synthesize(params interface{}) (PulseEnvelope, error) {
	switch p := params.(type) {
	case BlankParams:
		return s.Blank(p.Bias)
	case *BlankParams:
		return s.Blank(p.Bias)
	case SineParams:
		return s.Sine(p)
	case *SineParams:
		return s.Sine(*p)
	case GaussianParams:
		return s.Gaussian(p)
	case *GaussianParams:
		return s.Gaussian(*p)
	case DRAGParams:
		return s.DRAG(p)
	case *DRAGParams:
		return s.DRAG(*p)
	case SineEnvelopeParams:
		return s.SineEnvelope(p)
	case *SineEnvelopeParams:
		return s.SineEnvelope(*p)
	case TrapezoidParams:
		return s.Trapezoid(p)
	case *TrapezoidParams:
		return s.Trapezoid(*p)
	case ReadoutParams:
		return s.Readout(p)
	case *ReadoutParams:
		return s.Readout(*p)
	default:
		return PulseEnvelope{}, errors.Wrapf(ErrInvalidParameter, "unsupported pulse parameters %T", params)
	}
}
