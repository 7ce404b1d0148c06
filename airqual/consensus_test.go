package airqual

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsensusEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Consensus(nil))
	assert.Equal(t, MethodNone, Aggregate([]float64{}).Method)
}

func TestConsensusSingle(t *testing.T) {
	assert.Equal(t, 42.5, Consensus([]float64{42.5}))
	assert.Equal(t, MethodSingle, Aggregate([]float64{42.5}).Method)
}

func TestConsensusMedian(t *testing.T) {
	r := Aggregate([]float64{10, 400})
	assert.Equal(t, MethodMedian, r.Method)
	assert.Equal(t, 205.0, r.Value)

	r = Aggregate([]float64{41.7, 500, 50})
	assert.Equal(t, MethodMedian, r.Method)
	assert.Equal(t, 50.0, r.Value)
	assert.Empty(t, r.Excluded)
}

func TestConsensusIQRExcludesOutlier(t *testing.T) {
	r := Aggregate([]float64{10, 10, 10, 100})
	assert.Equal(t, MethodIQR, r.Method)
	assert.InDelta(t, 10.0, r.Value, 1e-9)
	assert.Equal(t, []float64{100}, r.Excluded)
}

func TestConsensusIQRKeepsSpread(t *testing.T) {
	r := Aggregate([]float64{10, 12, 14, 16, 18})
	assert.Equal(t, MethodIQR, r.Method)
	assert.InDelta(t, 14.0, r.Value, 1e-9)
	assert.Empty(t, r.Excluded)
}

func TestConsensusModifiedZExcludesOutlier(t *testing.T) {
	r := Aggregate([]float64{50, 51, 49, 50, 52, 48, 400})
	assert.Equal(t, MethodModifiedZ, r.Method)
	assert.InDelta(t, 50.0, r.Value, 1e-9)
	assert.Equal(t, []float64{400}, r.Excluded)
	assert.False(t, r.Fallback)
}

func TestConsensusModifiedZZeroMAD(t *testing.T) {
	r := Aggregate([]float64{20, 20, 20, 20, 20, 21, 900})
	assert.Equal(t, MethodModifiedZ, r.Method)
	assert.Equal(t, 20.0, r.Value)
}

func TestConsensusIdentical(t *testing.T) {
	for n := 1; n <= 12; n++ {
		values := make([]float64, n)
		for i := range values {
			values[i] = 33.3
		}
		assert.InDelta(t, 33.3, Consensus(values), 1e-9, "n=%d", n)
	}
}

func TestConsensusOrderIndependent(t *testing.T) {
	values := []float64{50, 51, 49, 50, 52, 48, 400, 47, 53}
	want := Consensus(values)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]float64(nil), values...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Consensus(shuffled))
	}
	assert.Equal(t, []float64{50, 51, 49, 50, 52, 48, 400, 47, 53}, values, "input must not be reordered")
}

func TestInlierMeanFallsBackToMedian(t *testing.T) {
	r := inlierMean([]float64{1, 2, 3, 10}, MethodIQR, func(float64) bool { return false })
	assert.True(t, r.Fallback)
	assert.Equal(t, 2.5, r.Value)
	assert.Len(t, r.Excluded, 4)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 10, 10, 100}
	assert.Equal(t, 10.0, percentile(sorted, 25))
	assert.InDelta(t, 32.5, percentile(sorted, 75), 1e-9)
	assert.Equal(t, 3.0, percentile([]float64{1, 2, 3, 4, 5}, 50))
}
