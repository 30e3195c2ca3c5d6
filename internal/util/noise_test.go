package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministic(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)

	for i := 0; i < 50; i++ {
		x, y := float64(i)*0.13, float64(i)*0.07
		assert.Equal(t, a.Noise2D(x, y), b.Noise2D(x, y), "Одинаковый сид должен давать одинаковый шум")
	}
}

func TestNoiseRange(t *testing.T) {
	n := NewNoise(7)
	for i := 0; i < 200; i++ {
		v := n.Noise3D(float64(i)*0.3, float64(i)*0.11, float64(i)*0.05)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.25, Clamp01(0.25))
}
