package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qctl/proteus/waveform"
)

func parse(t *testing.T, args ...string) options {
	t.Helper()
	o := options{}
	require.NoError(t, newFlagSet(&o).Parse(args))
	return o
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(parse(t, args...), &out, io.Discard, log.New(io.Discard))
	return out.String(), err
}

func TestParamsPerFamily(t *testing.T) {
	o := parse(t, "--family", "drag", "--beta", "0.5", "--sigma", "2e-8")
	p, err := o.params()
	require.NoError(t, err)
	d, ok := p.(waveform.DRAGParams)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, 0.5, d.Beta)
	assert.Equal(t, 2e-8, d.Sigma)

	o = parse(t, "-f", "rabi", "--plateau", "3e-7")
	p, err = o.params()
	require.NoError(t, err)
	assert.Equal(t, 3e-7, p.(waveform.TrapezoidParams).PlateauWidth)

	o = parse(t, "-f", "square")
	_, err = o.params()
	assert.True(t, errors.Is(err, waveform.ErrInvalidParameter))
}

func TestRunPrintsCSV(t *testing.T) {
	out, err := runArgs(t, "--family", "blank", "--bias", "0.25")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), ",")
	assert.Len(t, fields, waveform.MinSegmentLength)
	assert.Equal(t, "0.25", fields[0])
}

func TestRunPrintsDACCodes(t *testing.T) {
	out, err := runArgs(t, "--family", "blank", "--bias", "-1", "-o", "dac", "--bits", "8")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), ",")
	assert.Len(t, fields, waveform.MinSegmentLength)
	assert.Equal(t, "0", fields[0])

	_, err = runArgs(t, "--family", "blank", "-o", "dac", "--bits", "12")
	assert.Error(t, err)
}

func TestRunRejectsUnknownOutput(t *testing.T) {
	_, err := runArgs(t, "--family", "blank", "-o", "x")
	assert.Error(t, err)
}

func TestRunTimeAxis(t *testing.T) {
	out, err := runArgs(t, "--family", "sine", "--sclk", "2.048e9", "--frequency", "1e6", "-o", "t")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), ",")
	assert.Equal(t, "0", fields[0])
}

func TestMockUpload(t *testing.T) {
	out, err := runArgs(t, "--family", "blank", "--mock", "--channel", "2", "--segment", "5")
	require.NoError(t, err)
	assert.Contains(t, out, ":TRAC:DEF 5,2048")
	assert.Contains(t, out, ":TRAC:DATA #44096")
	assert.Contains(t, out, ":INST:CHAN 2")
}
