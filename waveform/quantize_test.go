package waveform_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/qctl/proteus/waveform"
)

func ExampleQuantize() {
	q, _ := waveform.Quantize(3000)
	fmt.Printf("%d %.4f %v\n", q.Quantized, q.NormalizationFactor, q.Adjusted())
	// Output: 2944 0.9813 true
}

func ExampleQuantize_compliant() {
	q, _ := waveform.Quantize(4096)
	fmt.Println(q.Quantized, q.NormalizationFactor, q.Adjusted())
	// Output: 4096 1 false
}

func TestQuantizeIdempotentOnCompliantLengths(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, waveform.MaxSegmentLength/waveform.SegmentQuantum-32).Draw(t, "n")
		l := 64 * (32 + n)
		q, err := waveform.Quantize(float64(l))
		assert.NoError(t, err)
		assert.Equal(t, l, q.Quantized)
		assert.Equal(t, 1.0, q.NormalizationFactor)
		assert.False(t, q.Adjusted())
		_, warned := q.Warning()
		assert.False(t, warned, "compliant length %d should not warn", l)
	})
}

func TestQuantizeFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := rapid.Float64Range(1e-3, 2047.999).Draw(t, "L")
		q, err := waveform.Quantize(l)
		assert.NoError(t, err)
		assert.Equal(t, waveform.MinSegmentLength, q.Quantized)
		assert.Equal(t, 2048/l, q.NormalizationFactor)
		assert.True(t, q.Floored())
		d, warned := q.Warning()
		assert.True(t, warned)
		assert.Equal(t, waveform.KindQuantization, d.Kind)
		assert.True(t, d.Floor)
		assert.Equal(t, 2048, d.Adjusted)
	})
}

func TestQuantizeTruncatesDown(t *testing.T) {
	q, err := waveform.Quantize(2049)
	if err != nil {
		t.Fatal(err)
	}
	if q.Quantized != 2048 || q.NormalizationFactor != 2048./2049. {
		t.Errorf("expected (2048, %f), got (%d, %f)", 2048./2049., q.Quantized, q.NormalizationFactor)
	}
	if q.Floored() {
		t.Error("2049 is above the floor and should not be reported as floored")
	}
}

func TestQuantizeAboveFloorRoundsDownToQuantum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := rapid.Float64Range(2048, 1e7).Draw(t, "L")
		q, err := waveform.Quantize(l)
		assert.NoError(t, err)
		assert.True(t, waveform.Compliant(q.Quantized), "%d is not compliant", q.Quantized)
		assert.LessOrEqual(t, float64(q.Quantized), l)
		assert.Less(t, l-float64(q.Quantized), float64(waveform.SegmentQuantum))
		assert.InDelta(t, float64(q.Quantized)/l, q.NormalizationFactor, 1e-15)
	})
}

func TestQuantizeRejectsNonPositive(t *testing.T) {
	for _, l := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := waveform.Quantize(l)
		assert.ErrorIs(t, err, waveform.ErrInvalidParameter, "length %v", l)
	}
}

func TestQuantizeRejectsAboveMaximum(t *testing.T) {
	q, err := waveform.Quantize(waveform.MaxSegmentLength)
	assert.NoError(t, err)
	assert.Equal(t, waveform.MaxSegmentLength, q.Quantized)
	assert.True(t, waveform.Compliant(q.Quantized))

	for _, l := range []float64{waveform.MaxSegmentLength + 1, 1e19, 64 * (32 + 1e19/64), 1e300, math.MaxFloat64} {
		_, err := waveform.Quantize(l)
		assert.ErrorIs(t, err, waveform.ErrInvalidParameter, "length %v", l)
	}
	rapid.Check(t, func(t *rapid.T) {
		l := rapid.Float64Range(waveform.MaxSegmentLength+1e-3, 1e300).Draw(t, "L")
		_, err := waveform.Quantize(l)
		assert.ErrorIs(t, err, waveform.ErrInvalidParameter)
	})
}

func TestCompliant(t *testing.T) {
	cases := map[int]bool{
		0:    false,
		64:   false,
		1984: false,
		2048: true,
		2049: false,
		2112: true,
		4096: true,
	}
	for n, expected := range cases {
		if got := waveform.Compliant(n); got != expected {
			t.Errorf("Compliant(%d): expected %v got %v", n, expected, got)
		}
	}
}
