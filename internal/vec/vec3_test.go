package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMappingInvariant(t *testing.T) {
	for p := -1000; p <= 1000; p++ {
		chunk := FloorDiv(p, ChunkSize)
		local := Mod(p, ChunkSize)
		assert.GreaterOrEqual(t, local, 0, "локальная координата должна быть неотрицательной для %d", p)
		assert.Less(t, local, ChunkSize)
		assert.Equal(t, p, chunk*ChunkSize+((p%16+16)%16), "инвариант нарушен для %d", p)
		assert.Equal(t, p, chunk*ChunkSize+local)
	}
}

func TestNegativeCoordinates(t *testing.T) {
	pos := Vec3{X: -1, Y: -16, Z: -17}

	assert.Equal(t, Vec3{X: -1, Y: -1, Z: -2}, pos.ToChunkCoords())
	assert.Equal(t, Vec3{X: 15, Y: 0, Z: 15}, pos.LocalInChunk())
	assert.Equal(t, pos, FromChunkLocal(pos.ToChunkCoords(), pos.LocalInChunk()))
}

func TestChebyshevDistance(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	b := Vec3{X: 3, Y: -7, Z: 2}

	assert.Equal(t, 7, a.ChebyshevDistance(b))
	assert.Equal(t, 7, b.ChebyshevDistance(a))
	assert.Equal(t, 0, a.ChebyshevDistance(a))
}

func TestFaces(t *testing.T) {
	for _, f := range Faces {
		assert.Equal(t, f, f.Opposite().Opposite())
		assert.Equal(t, Vec3{}, f.Normal().Add(f.Opposite().Normal()), "нормали противоположных граней должны гаситься")
		assert.Equal(t, f, FaceFromAxis(f.Axis(), f.Positive()))
	}
	assert.Equal(t, FaceWest, FaceEast.Opposite())
	assert.Equal(t, Vec3{X: 1, Y: 2, Z: 2}, Vec3{X: 1, Y: 2, Z: 3}.Side(FaceNorth))
}

func TestKeyRoundTrip(t *testing.T) {
	v := Vec3{X: -12, Y: 0, Z: 345}
	assert.Equal(t, "-12:0:345", v.Key())

	parsed, err := ParseKey(v.Key())
	require.NoError(t, err)
	assert.Equal(t, v, parsed)

	_, err = ParseKey("1:2")
	assert.Error(t, err)
	_, err = ParseKey("a:b:c")
	assert.Error(t, err)
}
