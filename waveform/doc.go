/*Package waveform synthesizes pulse envelopes for arbitrary waveform generators
whose memory is allocated in fixed-size chunks.

The Proteus family of AWGs only accepts segments whose length is of the form

	64 * (32 + n),  n >= 0

so any waveform shorter than 2048 points, or of a length not a multiple of 64,
must be stretched or truncated before it can be stored.  Quantize performs this
mapping and reports a normalization factor, the ratio of the stored length to
the requested one.  Every pulse family in this package goes through Quantize
and rebuilds its time axis at the quantized length, so the carrier frequency
and the pulse timing stay physically correct after the length changes.

Basic usage:

	ctx, err := waveform.NewSamplingContext(2.048e9, 1)
	if err != nil {
		log.Fatal(err)
	}
	syn := waveform.Synthesizer{Ctx: ctx}
	pulse, err := syn.Gaussian(waveform.GaussianParams{
		IWeight:        1,
		QWeight:        1,
		Amplitude:      1,
		Sigma:          50e-9,
		WidthOverSigma: 5,
		Frequency:      100e6,
	})
	// pulse.InPhase and pulse.Quadrature are ready for digital conversion

Quantization never fails a call.  When a length is altered a Diagnostic is
attached to the returned PulseEnvelope and, if the Synthesizer has a Sink,
forwarded to it.  Invalid physical parameters (non-positive frequencies,
widths or sigmas) fail with an error wrapping ErrInvalidParameter.

All functions are free of shared state and may be called concurrently.
*/
package waveform
