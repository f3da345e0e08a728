// Command pulsegen synthesizes a single control pulse and prints one of its
// arrays as CSV, or uploads it to a segment of the generator
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/theckman/yacspin"

	"github.com/qctl/proteus/comm"
	"github.com/qctl/proteus/proteus"
	"github.com/qctl/proteus/scpi"
	"github.com/qctl/proteus/util"
	"github.com/qctl/proteus/waveform"
)

func main() {
	o := options{}
	fs := newFlagSet(&o)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\tpulsegen [options]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "pulsegen"})
	if o.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if err := run(o, os.Stdout, os.Stderr, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(o options, stdout, stderr io.Writer, logger *log.Logger) error {
	ctx, err := waveform.NewSamplingContext(o.sclk, o.interp)
	if err != nil {
		return err
	}
	p, err := o.params()
	if err != nil {
		return err
	}
	var t []float64
	syn := waveform.Synthesizer{
		Ctx:  ctx,
		Sink: waveform.LogSink{Logger: logger},
		Plot: func(_ string, tt, _, _ []float64) { t = tt },
	}
	env, err := syn.Synthesize(p)
	if err != nil {
		return err
	}
	logger.Info("synthesized", "family", env.Name, "points", env.Length,
		"duration", util.SecsToDuration(float64(env.Length)*ctx.DeltaT()))
	for k, v := range env.Aux {
		logger.Debug("aux", "key", k, "value", v)
	}

	if o.upload != "" || o.mock {
		return upload(o, ctx, env, stdout, stderr, logger)
	}
	if o.output == "dac" {
		maxDAC := 65535
		switch o.bits {
		case 8:
			maxDAC = 255
		case 16:
		default:
			return fmt.Errorf("DAC width must be 8 or 16 bits, got %d", o.bits)
		}
		codes := proteus.DigitalConv(env.InPhase, maxDAC)
		ints := make([]int, len(codes))
		for i, c := range codes {
			ints[i] = int(c)
		}
		_, err = fmt.Fprintln(stdout, util.IntSliceToCSV(ints))
		return err
	}
	col, err := column(env, t, o.output)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, util.Float64SliceToCSV(col))
	return err
}

func upload(o options, ctx waveform.SamplingContext, env waveform.PulseEnvelope, stdout, stderr io.Writer, logger *log.Logger) error {
	var (
		d    proteus.Driver
		mock *proteus.Mock
	)
	if o.mock {
		mock = proteus.NewMock()
		d = mock
	} else {
		target := comm.Target{Addr: o.upload, Serial: o.serial}
		d = &scpi.SCPI{Pool: comm.NewPool(1, time.Minute, target.Maker()), Timeout: scpi.DefaultTimeout}
	}

	spinner, err := yacspin.New(yacspin.Config{
		Writer:            stderr,
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	if err = spinner.Start(); err != nil {
		return err
	}
	fail := func(err error) error {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		return err
	}

	spinner.Message("connecting")
	inst, err := proteus.Connect(d)
	if err != nil {
		return fail(err)
	}
	defer inst.Close()
	inst.Logger = logger

	spinner.Message(fmt.Sprintf("initializing channel %d", o.channel))
	if err = inst.InitChannel(o.channel, ctx); err != nil {
		return fail(err)
	}
	spinner.Message(fmt.Sprintf("uploading %d points to segment %d", env.Length, o.segment))
	if err = inst.Download(o.channel, o.segment, env.InPhase); err != nil {
		return fail(err)
	}
	spinner.StopMessage(fmt.Sprintf("%s in segment %d of channel %d", env.Name, o.segment, o.channel))
	if err = spinner.Stop(); err != nil {
		return err
	}
	if mock != nil {
		for _, c := range mock.Commands() {
			fmt.Fprintln(stdout, c)
		}
	}
	return nil
}
