package proteus_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qctl/proteus/proteus"
	"github.com/qctl/proteus/waveform"
)

func TestSetupDigitizer(t *testing.T) {
	in, m := connect(t)
	require.NoError(t, in.SetupDigitizer(proteus.DigitizerConfig{SampleRate: 2e9, NCO: 100e6, TriggerDelay: 1e-6}))
	diffCommands(t, m, []string{
		":DIG:MODE DUAL",
		":DIG:CHAN:RANG HIGH",
		":DIG:FREQ 2e+09",
		":DIG:DDC:MODE COMP",
		":DIG:DDC:DEC X16",
		":DIG:DDC:CLKS AWG",
		":DIG:DDC:CFR1 1e+08",
		":DIG:CHAN:SEL 1",
		":DIG:CHAN:STATE ENAB",
		":DIG:TRIG:SOURCE TASK1",
		":DIG:TRIG:AWG:TDEL 1e-06",
		":SYST:ERR?",
	})
}

func TestSetupDigitizerRejects(t *testing.T) {
	in, m := connect(t)
	for _, c := range []proteus.DigitizerConfig{
		{SampleRate: 3e9},
		{SampleRate: 0},
		{SampleRate: math.NaN()},
		{SampleRate: 1e9, TriggerDelay: -1},
		{SampleRate: 1e9, TriggerDelay: math.NaN()},
		{SampleRate: 1e9, NCO: math.Inf(1)},
	} {
		err := in.SetupDigitizer(c)
		assert.True(t, errors.Is(err, waveform.ErrInvalidParameter), "%+v: got %v", c, err)
	}
	assert.Empty(t, m.Commands())
}

func TestDefineFrames(t *testing.T) {
	in, m := connect(t)
	require.NoError(t, in.DefineFrames(4, 4800))
	diffCommands(t, m, []string{":DIG:ACQ:FRAM:DEF 4,4800", ":DIG:ACQ:FRAM:CAPT:ALL", ":DIG:ACQ:ZERO:ALL", ":SYST:ERR?"})
	err := in.DefineFrames(0, 4800)
	assert.True(t, errors.Is(err, waveform.ErrInvalidParameter), "got %v", err)
}

func TestCapturePollsUntilDone(t *testing.T) {
	in, m := connect(t)
	in.PollInterval = time.Millisecond
	m.FrameStatus = []string{"0,0,0,0", "0,1,0,0"}
	require.NoError(t, in.Capture(context.Background()))
	diffCommands(t, m, []string{
		":DIG:INIT OFF",
		":DIG:INIT ON",
		":DIG:ACQ:FRAM:STAT?",
		":DIG:ACQ:FRAM:STAT?",
		":DIG:ACQ:FRAM:STAT?",
		":DIG:INIT OFF",
		":SYST:ERR?",
	})
}

func TestCaptureTimesOut(t *testing.T) {
	in, m := connect(t)
	in.PollInterval = time.Millisecond
	in.MaxPolls = 2
	m.FrameStatus = []string{"0,0,0,0", "0,0,0,0", "0,0,0,0"}
	err := in.Capture(context.Background())
	assert.True(t, errors.Is(err, proteus.ErrCaptureTimeout), "got %v", err)
	cmds := m.Commands()
	assert.Equal(t, ":DIG:INIT OFF", cmds[len(cmds)-1], "digitizer must be disarmed")
}

func TestCaptureHonorsContext(t *testing.T) {
	in, m := connect(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := in.Capture(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	diffCommands(t, m, []string{":DIG:INIT OFF", ":DIG:INIT ON", ":DIG:INIT OFF"})
}

func TestReadIQ(t *testing.T) {
	in, m := connect(t)
	want := proteus.IQ{I: []int32{1, -2, 0}, Q: []int32{3, -16384, 100}}
	m.SetCaptured(want)
	got, err := in.ReadIQ(1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	diffCommands(t, m, []string{
		":DIG:DATA:TYPE FRAM",
		":DIG:DATA:SEL ALL",
		":DIG:DATA:SIZE?",
		":DIG:CHAN:SEL 1",
		":DIG:DATA:READ?",
		":SYST:ERR?",
	})
}

func TestReadIQChecksChannel(t *testing.T) {
	in, m := connect(t)
	for _, ch := range []int{0, 5} {
		_, err := in.ReadIQ(ch)
		assert.True(t, errors.Is(err, proteus.ErrBadChannel), "channel %d: got %v", ch, err)
	}
	assert.Empty(t, m.Commands(), "nothing should reach the instrument")
}

func TestReadIQRejectsPartialWords(t *testing.T) {
	in, m := connect(t)
	m.Captured = make([]byte, 12)
	_, err := in.ReadIQ(1)
	assert.Error(t, err)
}
