package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineSymmetry(t *testing.T) {
	cases := [][4]float64{
		{25.0339, 121.5654, 25.0478, 121.5319},
		{0, 0, 10, 10},
		{-33.8688, 151.2093, 51.5074, -0.1278},
	}
	for _, c := range cases {
		ab := HaversineM(c[0], c[1], c[2], c[3])
		ba := HaversineM(c[2], c[3], c[0], c[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, HaversineM(25.0339, 121.5654, 25.0339, 121.5654))
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is roughly 111.19 km
	d := HaversineM(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)

	// two points ~15m apart in central Taipei
	d = HaversineM(25.0339, 121.5654, 25.0340, 121.5655)
	assert.Greater(t, d, 10.0)
	assert.Less(t, d, 20.0)
}

func TestWithinWindow(t *testing.T) {
	assert.True(t, WithinWindow(1000, 1050, 90))
	assert.True(t, WithinWindow(1050, 1000, 90))
	assert.True(t, WithinWindow(1000, 1090, 90))
	assert.False(t, WithinWindow(1000, 1091, 90))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(25.0339, 121.5654))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
