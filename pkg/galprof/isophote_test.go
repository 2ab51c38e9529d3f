package galprof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEllipseSamplerFlat(t *testing.T) {
	img := flatImage(t, 21, 21, 1, 7)
	radii := []float64{0, 1, 3.5, 8}
	isos, err := NewEllipseSampler().Extract(img, 10, 10, 0.4, 0.6, radii)
	require.NoError(t, err)
	require.Len(t, isos, len(radii))

	assert.Equal(t, 1, isos[0].N, "zero radius samples the center only")
	for i, iso := range isos {
		assert.Equal(t, radii[i], iso.Radius)
		assert.InDelta(t, 7, iso.Flux, 1e-12)
		assert.InDelta(t, 0, iso.Noise, 1e-12)
	}
	assert.Equal(t, 16, isos[1].N)
	assert.Equal(t, int(math.Ceil(16*math.Pi)), isos[3].N)
}

func TestEllipseSamplerMedian(t *testing.T) {
	img := rampImage(21, 21, 1, Point2d{})
	isos, err := NewEllipseSampler().Extract(img, 10, 10, 0, 1, []float64{4})
	require.NoError(t, err)
	assert.InDelta(t, img.At(10, 10), isos[0].Flux, 60, "the median of a plane lies next to its center")
	assert.Positive(t, isos[0].Noise)
}

func TestEllipseSamplerOutsideImage(t *testing.T) {
	img := flatImage(t, 8, 8, 1, 1)

	_, err := NewEllipseSampler().Extract(img, -20, -20, 0, 1, []float64{0})
	require.ErrorIs(t, err, ErrEmptyIsophote)

	isos, err := NewEllipseSampler().Extract(img, 3.5, 3.5, 0, 1, []float64{50})
	require.NoError(t, err, "an ellipse around the image falls back to the hull")
	assert.Equal(t, 1.0, isos[0].Flux)
}
