package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/qctl/proteus/waveform"
)

// options holds every flag of pulsegen; each family reads the subset it needs
type options struct {
	family string
	sclk   float64
	interp int

	amplitude      float64
	frequency      float64
	iWeight        float64
	qWeight        float64
	sigma          float64
	widthOverSigma float64
	beta           float64
	width          float64
	slope          float64
	plateau        float64
	phase          float64
	bias           float64
	periods        int

	output string
	bits   int

	upload  string
	serial  bool
	channel int
	segment int
	mock    bool
	verbose bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pulsegen", pflag.ContinueOnError)
	fs.StringVarP(&o.family, "family", "f", "gaussian", "Pulse family: blank, sine, gaussian, drag, sine-envelope, trapezoid, readout.")
	fs.Float64Var(&o.sclk, "sclk", 2.5e9, "DAC sample rate, Sa/s.")
	fs.IntVar(&o.interp, "interp", 1, "Interpolation factor.")

	fs.Float64VarP(&o.amplitude, "amplitude", "a", 1, "Amplitude, nominally in [0, 1].")
	fs.Float64Var(&o.frequency, "frequency", 100e6, "Carrier frequency, Hz.")
	fs.Float64Var(&o.iWeight, "i-weight", 1, "In-phase weight (gaussian, drag).")
	fs.Float64Var(&o.qWeight, "q-weight", 0, "Quadrature weight (gaussian, drag).")
	fs.Float64Var(&o.sigma, "sigma", 100e-9, "Gaussian standard deviation, s.")
	fs.Float64Var(&o.widthOverSigma, "width-over-sigma", 4, "Gaussian width in units of sigma.")
	fs.Float64Var(&o.beta, "beta", 0, "DRAG coefficient.")
	fs.Float64Var(&o.width, "width", 1e-6, "Sine-envelope pulse width, s.")
	fs.Float64Var(&o.slope, "slope", 100e-9, "Trapezoid ramp width, s.")
	fs.Float64Var(&o.plateau, "plateau", 1e-6, "Trapezoid plateau width, s.")
	fs.Float64Var(&o.phase, "phase", 0, "Phase shift, rad (sine, readout).")
	fs.Float64Var(&o.bias, "bias", 0, "DC level of a blank segment, in [-1, 1].")
	fs.IntVar(&o.periods, "periods", 1, "Readout tone periods.")

	fs.StringVarP(&o.output, "output", "o", "i", "What to print: i, q, env, t or dac.")
	fs.IntVar(&o.bits, "bits", 16, "DAC width for -o dac, 8 or 16.")

	fs.StringVarP(&o.upload, "upload", "u", "", "Upload the in-phase channel to the instrument at this address instead of printing.")
	fs.BoolVar(&o.serial, "serial", false, "The upload address is a serial port.")
	fs.IntVar(&o.channel, "channel", 1, "Channel to upload to.")
	fs.IntVar(&o.segment, "segment", 1, "Segment to upload to.")
	fs.BoolVar(&o.mock, "mock", false, "Upload to an in-memory instrument and print the commands it received.")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Log at debug level.")
	return fs
}

// params converts the flags into the parameter struct of the chosen family
func (o options) params() (interface{}, error) {
	f, err := waveform.ValidateFamily(o.family)
	if err != nil {
		return nil, err
	}
	g := waveform.GaussianParams{
		IWeight:        o.iWeight,
		QWeight:        o.qWeight,
		Amplitude:      o.amplitude,
		Sigma:          o.sigma,
		WidthOverSigma: o.widthOverSigma,
		Frequency:      o.frequency,
	}
	switch f {
	case waveform.FamilyBlank:
		return waveform.BlankParams{Bias: o.bias}, nil
	case waveform.FamilySine:
		return waveform.SineParams{Amplitude: o.amplitude, Frequency: o.frequency, PhaseShift: o.phase}, nil
	case waveform.FamilyGaussian:
		return g, nil
	case waveform.FamilyDRAG:
		return waveform.DRAGParams{GaussianParams: g, Beta: o.beta}, nil
	case waveform.FamilySineEnvelope:
		return waveform.SineEnvelopeParams{Amplitude: o.amplitude, Width: o.width, Frequency: o.frequency}, nil
	case waveform.FamilyTrapezoid:
		return waveform.TrapezoidParams{Amplitude: o.amplitude, SlopeWidth: o.slope, PlateauWidth: o.plateau, Frequency: o.frequency}, nil
	case waveform.FamilyReadout:
		return waveform.ReadoutParams{Amplitude: o.amplitude, Frequency: o.frequency, Periods: o.periods, PhaseShift: o.phase}, nil
	}
	return nil, errors.Wrapf(waveform.ErrInvalidParameter, "family %s", o.family)
}

// column selects the array printed by -o
func column(env waveform.PulseEnvelope, t []float64, which string) ([]float64, error) {
	switch which {
	case "i":
		return env.InPhase, nil
	case "q":
		return env.Quadrature, nil
	case "env":
		return env.Envelope, nil
	case "t":
		return t, nil
	}
	return nil, fmt.Errorf("output %q must be a member of {i, q, env, t, dac}", which)
}
