package ta

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const equalityThreshold = 1e-9

func TestRSI(t *testing.T) {
	t.Run("short history is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI([]float64{1, 2, 3}, 14))
		assert.Equal(t, 50.0, RSI(nil, 14))
	})

	t.Run("gains only yields 100", func(t *testing.T) {
		closes := []float64{10, 10.5, 11, 10.8, 11.2}
		for i := 0; i < 14; i++ {
			closes = append(closes, closes[len(closes)-1]+0.3)
		}
		assert.Equal(t, 100.0, RSI(closes, 14))
	})

	t.Run("losses only yields 0", func(t *testing.T) {
		closes := make([]float64, 0, 20)
		for i := 0; i < 20; i++ {
			closes = append(closes, 100-float64(i))
		}
		assert.InDelta(t, 0.0, RSI(closes, 14), equalityThreshold)
	})

	t.Run("simple average of last period diffs", func(t *testing.T) {
		// 15 closes: 7 up moves of +2, 7 down moves of -1
		closes := []float64{100}
		for i := 0; i < 7; i++ {
			closes = append(closes, closes[len(closes)-1]+2, closes[len(closes)-1]+2-1)
		}
		require.Len(t, closes, 15)
		avgGain := 14.0 / 14
		avgLoss := 7.0 / 14
		want := 100 - 100/(1+avgGain/avgLoss)
		assert.InDelta(t, want, RSI(closes, 14), equalityThreshold)
	})

	t.Run("only the last period diffs count", func(t *testing.T) {
		closes := []float64{1000, 1}
		for i := 0; i < 14; i++ {
			closes = append(closes, closes[len(closes)-1]+1)
		}
		assert.Equal(t, 100.0, RSI(closes, 14))
	})

	t.Run("bounded for random input", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		for n := 1; n < 200; n++ {
			closes := make([]float64, n)
			for i := range closes {
				closes[i] = r.Float64()*200 - 50
			}
			v := RSI(closes, 14)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})
}

func TestMovingAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.InDelta(t, 8.0, MovingAverage(closes, 5), equalityThreshold)
	assert.InDelta(t, 5.5, MovingAverage(closes, 20), equalityThreshold, "window larger than history shrinks")
	assert.Equal(t, 0.0, MovingAverage(nil, 7))

	r := rand.New(rand.NewSource(11))
	for n := 1; n < 40; n++ {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = r.Float64() * 100
		}
		for _, w := range []int{1, 7, 20, 50} {
			k := int(math.Min(float64(w), float64(n)))
			sum := 0.0
			for _, v := range vals[n-k:] {
				sum += v
			}
			assert.InDelta(t, sum/float64(k), MovingAverage(vals, w), 1e-6)
		}
	}
}

func TestStrictMovingAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	_, err := StrictMovingAverage(closes, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)

	v, err := StrictMovingAverage(closes, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, equalityThreshold)

	_, err = StrictMovingAverage(closes, 0)
	assert.Error(t, err)
}

func TestChangePct(t *testing.T) {
	assert.Equal(t, 0.0, ChangePct([]float64{42}))
	assert.Equal(t, 0.0, ChangePct(nil))
	assert.InDelta(t, 10.0, ChangePct([]float64{5, 100, 110}), equalityThreshold)
	assert.InDelta(t, -50.0, ChangePct([]float64{2, 1}), equalityThreshold)
	assert.Equal(t, 0.0, ChangePct([]float64{0, 1}))
}

func TestVolumeRatio(t *testing.T) {
	t.Run("uses preceding ten", func(t *testing.T) {
		vols := []float64{999, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 300}
		assert.InDelta(t, 3.0, VolumeRatio(vols), equalityThreshold)
	})

	t.Run("fewer than ten preceding", func(t *testing.T) {
		assert.InDelta(t, 2.0, VolumeRatio([]float64{50, 150, 200}), equalityThreshold)
	})

	t.Run("zero mean is neutral", func(t *testing.T) {
		assert.Equal(t, 1.0, VolumeRatio([]float64{0, 0, 0, 500}))
	})

	t.Run("single volume is neutral", func(t *testing.T) {
		assert.Equal(t, 1.0, VolumeRatio([]float64{500}))
	})
}

func TestSnapshot(t *testing.T) {
	closes := make([]float64, 0, 25)
	vols := make([]float64, 0, 25)
	for i := 0; i < 25; i++ {
		closes = append(closes, 100+float64(i))
		vols = append(vols, 1000)
	}
	s := Snapshot(closes, vols)

	assert.Equal(t, 100.0, s.RSI)
	assert.InDelta(t, 121.0, s.MAShort, equalityThreshold)
	assert.InDelta(t, 114.5, s.MALong, equalityThreshold)
	assert.Greater(t, s.MAShort, s.MALong)
	assert.InDelta(t, 1.0/123*100, s.ChangePct, equalityThreshold)
	assert.Equal(t, 1.0, s.VolumeRatio)
}
