/*Package proteus drives a Tabor Proteus arbitrary waveform generator and
digitizer over SCPI.

An Instrument owns one Driver and serializes all traffic to it, so the
command order per channel is preserved even when an Instrument is shared
between goroutines.  *scpi.SCPI is the production Driver; Mock stands in
for hardware in tests and demos.

A typical session:

	inst, err := proteus.Connect(&scpi.SCPI{Pool: pool})
	ctx, _ := waveform.NewSamplingContext(2.5e9, 1)
	err = inst.InitChannel(1, ctx)

	syn := waveform.Synthesizer{Ctx: ctx}
	pi, _ := syn.Gaussian(params)
	blank, _ := syn.Blank(0)
	err = inst.Download(1, 1, pi.InPhase)
	err = inst.Download(1, 2, blank.InPhase)

	loops, _ := proteus.DelayLoops(1e-6, ctx)
	tbl, _ := proteus.PulseSequence(2, []int{1, 1}, []int{loops})
	err = inst.WriteTaskTable(1, tbl)
	err = inst.StartTasks(1)
*/
package proteus
