package waveform_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/qctl/proteus/waveform"
)

func synth(t testing.TB, sclk float64, interp int) waveform.Synthesizer {
	ctx, err := waveform.NewSamplingContext(sclk, interp)
	if err != nil {
		t.Fatal(err)
	}
	return waveform.Synthesizer{Ctx: ctx}
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func TestNewSamplingContextRejectsBadValues(t *testing.T) {
	for _, c := range []struct {
		sclk   float64
		interp int
	}{{0, 1}, {-1e9, 1}, {math.NaN(), 1}, {1e9, 0}, {1e9, -2}} {
		_, err := waveform.NewSamplingContext(c.sclk, c.interp)
		assert.ErrorIs(t, err, waveform.ErrInvalidParameter, "%+v", c)
	}
}

func TestDeltaTIncludesInterpolation(t *testing.T) {
	s := synth(t, 2e9, 4)
	if dt := s.Ctx.DeltaT(); dt != 2e-9 {
		t.Errorf("expected delta t of 2 ns, got %g", dt)
	}
}

func TestBlankIsConstantBias(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.Blank(0.25)
	require.NoError(t, err)
	require.Equal(t, 2048, p.Length)
	for k := range p.InPhase {
		if p.InPhase[k] != 0.25 || p.Quadrature[k] != 0 {
			t.Fatalf("sample %d: expected (0.25, 0) got (%f, %f)", k, p.InPhase[k], p.Quadrature[k])
		}
	}
	assert.InDelta(t, 2048e-9, p.Aux["duration"], 1e-18)
	assert.Empty(t, p.Diagnostics)

	_, err = s.Blank(1.5)
	assert.ErrorIs(t, err, waveform.ErrInvalidParameter)
}

func TestSineOneCycleAt2048Points(t *testing.T) {
	for _, sclk := range []float64{1e9, 2.048e9, 2.5e9} {
		s := synth(t, sclk, 1)
		p, err := s.Sine(waveform.SineParams{Amplitude: 1, Frequency: sclk / 2048})
		require.NoError(t, err)
		require.Equal(t, 2048, p.Length)
		assert.Empty(t, p.Diagnostics, "sclk %g", sclk)
		assert.InDelta(t, 0, p.InPhase[0], 1e-12)
		assert.InDelta(t, 0, p.InPhase[1024], 1e-12)
		assert.Greater(t, p.InPhase[1], 0.)
		assert.Greater(t, p.InPhase[1023], 0.)
		assert.Less(t, p.InPhase[1025], 0.)
		assert.Less(t, p.InPhase[2047], 0.)
		assert.InDelta(t, 1, p.Quadrature[0], 1e-12)
		assert.InDelta(t, sclk/2048, p.Aux["frequency"], 1e-6)
	}
}

func TestSineReportsRealizedFrequency(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.Sine(waveform.SineParams{Amplitude: 1, Frequency: 300e3})
	require.NoError(t, err)
	// 3333.3 points requested, 3328 stored
	assert.Equal(t, 3328, p.Length)
	assert.True(t, p.HasDiagnostic(waveform.KindQuantization))
	assert.InDelta(t, 1e9/3328, p.Aux["frequency"], 1e-6)
}

// reference Gaussian evaluated on exactly n samples with no compensation
func referenceGaussianArea(amplitude, sigmaSamples float64, n int) float64 {
	ss := sigmaSamples / float64(n)
	var s float64
	for k := 0; k < n; k++ {
		t := -1 + 2*float64(k)/float64(n)
		s += amplitude * (1 / ss / math.Sqrt(2*math.Pi) / 2) * math.Exp(-t*t/2/ss/ss)
	}
	return s
}

func TestGaussianAreaInvariantUnderQuantization(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.Gaussian(waveform.GaussianParams{
		IWeight: 1, QWeight: 1, Amplitude: 0.8,
		Sigma: 600e-9, WidthOverSigma: 5, Frequency: 100e6})
	require.NoError(t, err)
	require.Equal(t, 2944, p.Length)
	require.True(t, p.HasDiagnostic(waveform.KindQuantization))
	assert.False(t, p.HasDiagnostic(waveform.KindSlowCarrier))

	want := referenceGaussianArea(0.8, 600, 3000)
	got := sum(p.Envelope)
	assert.InEpsilon(t, want, got, 1e-3)

	// without compensation the area would be off by the length ratio
	nf := p.Aux["normalization_factor"]
	assert.Greater(t, math.Abs(got*nf-want)/want, 0.01)
}

func TestGaussianPeaksAtCenter(t *testing.T) {
	s := synth(t, 2.048e9, 1)
	p, err := s.Gaussian(waveform.GaussianParams{
		IWeight: 1, QWeight: 0, Amplitude: 1,
		Sigma: 1e-6, WidthOverSigma: 4, Frequency: 50e6})
	require.NoError(t, err)
	mid := p.Length / 2
	for k, v := range p.Envelope {
		if v > p.Envelope[mid] {
			t.Fatalf("envelope at %d (%g) exceeds the center value %g", k, v, p.Envelope[mid])
		}
	}
	for _, v := range p.Quadrature {
		if v != 0 {
			t.Fatal("zero Q weight should give a zero quadrature channel")
		}
	}
	assert.Equal(t, 50e6*float64(p.Length)/2/2.048e9, p.Aux["carrier_cycles"])
}

func TestGaussianWarnsOnSlowCarrier(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.Gaussian(waveform.GaussianParams{
		IWeight: 1, QWeight: 1, Amplitude: 1,
		Sigma: 10e-9, WidthOverSigma: 5, Frequency: 100e6})
	require.NoError(t, err)
	assert.True(t, p.HasDiagnostic(waveform.KindSlowCarrier))
	// 50 points requested, grown to the floor
	assert.Equal(t, 2048, p.Length)
	var floored bool
	for _, d := range p.Diagnostics {
		if d.Kind == waveform.KindQuantization && d.Floor {
			floored = true
		}
	}
	assert.True(t, floored)
}

func TestGaussianRejectsInvalidParameters(t *testing.T) {
	s := synth(t, 1e9, 1)
	good := waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 1e-7, WidthOverSigma: 5, Frequency: 1e8}
	mutations := []func(p *waveform.GaussianParams){
		func(p *waveform.GaussianParams) { p.Sigma = 0 },
		func(p *waveform.GaussianParams) { p.Sigma = -1e-9 },
		func(p *waveform.GaussianParams) { p.WidthOverSigma = 0 },
		func(p *waveform.GaussianParams) { p.Frequency = 0 },
		func(p *waveform.GaussianParams) { p.Frequency = math.Inf(1) },
		func(p *waveform.GaussianParams) { p.Amplitude = math.NaN() },
	}
	for i, mut := range mutations {
		p := good
		mut(&p)
		env, err := s.Gaussian(p)
		assert.ErrorIs(t, err, waveform.ErrInvalidParameter, "mutation %d", i)
		assert.Nil(t, env.InPhase, "mutation %d left a partial result", i)
	}
}

func TestDRAGZeroBetaMatchesGaussian(t *testing.T) {
	s := synth(t, 1e9, 1)
	g := waveform.GaussianParams{IWeight: 0.7, QWeight: 0.7, Amplitude: 1, Sigma: 600e-9, WidthOverSigma: 5, Frequency: 100e6}
	a, err := s.Gaussian(g)
	require.NoError(t, err)
	b, err := s.DRAG(waveform.DRAGParams{GaussianParams: g})
	require.NoError(t, err)
	assert.Equal(t, a.InPhase, b.InPhase)
	assert.Equal(t, a.Quadrature, b.Quadrature)
	assert.Equal(t, a.Envelope, b.Envelope)
}

func TestDRAGExposesQuadratureOverflow(t *testing.T) {
	s := synth(t, 1e9, 1)
	g := waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 600e-9, WidthOverSigma: 5, Frequency: 100e6}
	p, err := s.DRAG(waveform.DRAGParams{GaussianParams: g, Beta: 2})
	require.NoError(t, err)
	var m float64
	for _, v := range p.Quadrature {
		m = math.Max(m, math.Abs(v))
	}
	assert.Equal(t, m, p.Aux["quadrature_peak"])
	assert.Greater(t, m, 1., "large beta should push Q outside [-1, 1]")
	assert.Equal(t, 2., p.Aux["beta"])
}

func TestSineEnvelopeIsPeakNormalized(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.SineEnvelope(waveform.SineEnvelopeParams{Amplitude: 0.5, Width: 3e-6, Frequency: 20e6})
	require.NoError(t, err)
	require.Equal(t, 2944, p.Length)
	assert.Equal(t, 0., p.Envelope[0])
	assert.InDelta(t, 0.5, p.Envelope[p.Length/2], 1e-15)
	assert.InDelta(t, 5*20e6*2944/2/1e9, p.Aux["carrier_cycles"], 1e-9)
	assert.InDelta(t, 2944./3000., p.Aux["normalization_factor"], 1e-15)
}

func TestTrapezoidLengthAdditivity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		slope := rapid.Float64Range(1e-9, 20e-6).Draw(rt, "slope")
		plateau := rapid.Float64Range(1e-9, 50e-6).Draw(rt, "plateau")
		s := synth(t, 1e9, 1)
		p, err := s.Trapezoid(waveform.TrapezoidParams{Amplitude: 1, SlopeWidth: slope, PlateauWidth: plateau, Frequency: 10e6})
		assert.NoError(rt, err)
		ns := int(p.Aux["slope_length"])
		np := int(p.Aux["plateau_length"])
		assert.True(rt, waveform.Compliant(ns), "slope %d", ns)
		assert.True(rt, waveform.Compliant(np), "plateau %d", np)
		assert.Equal(rt, 2*ns+np, p.Length)
		assert.Len(rt, p.InPhase, p.Length)
		assert.Len(rt, p.Quadrature, p.Length)
	})
}

func TestTrapezoidShape(t *testing.T) {
	s := synth(t, 1e9, 1)
	p, err := s.Trapezoid(waveform.TrapezoidParams{Amplitude: 0.9, SlopeWidth: 2.5e-6, PlateauWidth: 5e-6, Frequency: 10e6})
	require.NoError(t, err)
	require.Equal(t, 2*2496+4992, p.Length)
	ns := 2496
	assert.Equal(t, 0., p.Envelope[0])
	assert.Equal(t, 0.9, p.Envelope[ns-1])
	assert.Equal(t, 0.9, p.Envelope[ns])
	assert.Equal(t, 0., p.Envelope[p.Length-1])
	for k := 0; k < p.Length/2; k++ {
		if p.Envelope[k] != p.Envelope[p.Length-1-k] {
			t.Fatalf("envelope not symmetric at %d", k)
		}
	}
}

func TestReadoutPeakSpacingIsOnePeriod(t *testing.T) {
	const f = 1e6
	for _, sclk := range []float64{2.048e9, 2.112e9, 2.56e9, 4.096e9} {
		s := synth(t, sclk, 1)
		p, err := s.Readout(waveform.ReadoutParams{Amplitude: 1, Frequency: f, Periods: 4})
		require.NoError(t, err)
		assert.InDelta(t, 1/f, p.Aux["distance_bw_2_peaks_in_time"], 1e-15, "sclk %g", sclk)

		period := int(math.Round(sclk / f))
		assert.Equal(t, 4*period+10*2048+2048, p.Length)
		first := int(p.Aux["first_peak_index"])
		assert.Equal(t, period/4, first)
		assert.InDelta(t, 1, p.InPhase[first], 1e-9)
		assert.InDelta(t, 1, p.InPhase[first+period], 1e-9)
		assert.Equal(t, 1., p.InPhase[p.Length-1024])
		assert.InDelta(t, float64(p.Length-1024-first)/sclk, p.Aux["distance_1stpeak_marker_in_time"], 1e-15)
	}
}

func TestReadoutPhaseShiftMovesPeak(t *testing.T) {
	s := synth(t, 2.048e9, 1)
	p, err := s.Readout(waveform.ReadoutParams{Amplitude: 0.5, Frequency: 1e6, Periods: 2, PhaseShift: math.Pi / 2})
	require.NoError(t, err)
	assert.Equal(t, 0., p.Aux["first_peak_index"])
	assert.InDelta(t, 0.5, p.InPhase[0], 1e-12)
	for _, v := range p.Quadrature {
		require.Equal(t, 0., v)
	}
}

func TestReadoutRejectsZeroPeriods(t *testing.T) {
	s := synth(t, 2.048e9, 1)
	_, err := s.Readout(waveform.ReadoutParams{Amplitude: 1, Frequency: 1e6})
	assert.ErrorIs(t, err, waveform.ErrInvalidParameter)
}

func TestFamiliesRejectLengthsAboveMaximum(t *testing.T) {
	s := synth(t, 1e9, 1)
	g := waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 1e10, WidthOverSigma: 5, Frequency: 1e6}
	cases := map[string]interface{}{
		"gaussian":         g,
		"drag":             waveform.DRAGParams{GaussianParams: g, Beta: 0.1},
		"sine":             waveform.SineParams{Amplitude: 1, Frequency: 1e-3},
		"sine-envelope":    waveform.SineEnvelopeParams{Amplitude: 1, Width: 1, Frequency: 1e6},
		"plateau":          waveform.TrapezoidParams{Amplitude: 1, SlopeWidth: 1e-6, PlateauWidth: 1, Frequency: 1e6},
		"trapezoid total":  waveform.TrapezoidParams{Amplitude: 1, SlopeWidth: 0.02, PlateauWidth: 1e-6, Frequency: 1e6},
		"readout period":   waveform.ReadoutParams{Amplitude: 1, Frequency: 1e-3, Periods: 1},
		"readout periods":  waveform.ReadoutParams{Amplitude: 1, Frequency: 1e3, Periods: 40},
		"readout overflow": waveform.ReadoutParams{Amplitude: 1, Frequency: 1e6, Periods: math.MaxInt},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Synthesize(c)
			assert.ErrorIs(t, err, waveform.ErrInvalidParameter)
		})
	}
}

func TestSlowCarrierAccountsForInterpolation(t *testing.T) {
	// five periods of 100 MHz are 50 ns, or 200 ns once divided by 4
	g := waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 100e-9, WidthOverSigma: 5, Frequency: 100e6}
	p, err := synth(t, 2e9, 1).Gaussian(g)
	require.NoError(t, err)
	assert.False(t, p.HasDiagnostic(waveform.KindSlowCarrier))

	p, err = synth(t, 2e9, 4).Gaussian(g)
	require.NoError(t, err)
	assert.True(t, p.HasDiagnostic(waveform.KindSlowCarrier))
}

func TestInterpolationDiagnosticOnEveryFamily(t *testing.T) {
	s := synth(t, 2.048e9, 2)
	calls := []interface{}{
		waveform.BlankParams{},
		waveform.SineParams{Amplitude: 1, Frequency: 1e6},
		waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 1e-6, WidthOverSigma: 5, Frequency: 1e8},
		waveform.DRAGParams{GaussianParams: waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 1e-6, WidthOverSigma: 5, Frequency: 1e8}, Beta: 0.1},
		waveform.SineEnvelopeParams{Amplitude: 1, Width: 2e-6, Frequency: 1e7},
		waveform.TrapezoidParams{Amplitude: 1, SlopeWidth: 2e-6, PlateauWidth: 2e-6, Frequency: 1e7},
		waveform.ReadoutParams{Amplitude: 1, Frequency: 1e6, Periods: 1},
	}
	for _, c := range calls {
		p, err := s.Synthesize(c)
		require.NoError(t, err, "%T", c)
		assert.True(t, p.HasDiagnostic(waveform.KindInterpolation), "%T", c)
	}
}

func TestSinkAndPlotHooks(t *testing.T) {
	var (
		mu    sync.Mutex
		seen  []waveform.Diagnostic
		plots int
	)
	s := synth(t, 1e9, 1)
	s.Sink = waveform.SinkFunc(func(pulse string, d waveform.Diagnostic) {
		mu.Lock()
		defer mu.Unlock()
		if pulse != "gaussian" {
			t.Errorf("expected pulse name gaussian, got %s", pulse)
		}
		seen = append(seen, d)
	})
	s.Plot = func(pulse string, tAxis, i, q []float64) {
		plots++
		if len(tAxis) != len(i) || len(i) != len(q) {
			t.Errorf("plot hook got mismatched lengths %d %d %d", len(tAxis), len(i), len(q))
		}
	}
	p, err := s.Gaussian(waveform.GaussianParams{IWeight: 1, QWeight: 1, Amplitude: 1, Sigma: 600e-9, WidthOverSigma: 5, Frequency: 100e6})
	require.NoError(t, err)
	assert.Equal(t, p.Diagnostics, seen)
	assert.Equal(t, 1, plots)
	require.Len(t, seen, 1)
	assert.Equal(t, 3000., seen[0].Requested)
	assert.Equal(t, 2944, seen[0].Adjusted)
}
