package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, data []byte, stride int) []byte {
	t.Helper()
	enc, err := Encode(data, stride)
	require.NoError(t, err)
	dec, err := Decode(enc, stride)
	require.NoError(t, err)
	assert.Equal(t, len(data), len(dec))
	if len(data) > 0 {
		assert.Equal(t, data, dec)
	}
	return enc
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, stride := range []int{1, 2, 4} {
		for n := 0; n < 200; n++ {
			tuples := rng.Intn(600)
			data := make([]byte, tuples*stride)
			// маленький алфавит, чтобы были и повторы, и литералы
			for i := range data {
				data[i] = byte(rng.Intn(3))
			}
			roundTrip(t, data, stride)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, stride := range []int{1, 2, 4} {
		enc, err := Encode(nil, stride)
		require.NoError(t, err)
		assert.Empty(t, enc)

		dec, err := Decode(enc, stride)
		require.NoError(t, err)
		assert.Empty(t, dec)
	}
}

func TestIdenticalTuplesCompress(t *testing.T) {
	data := make([]byte, 4096*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 7
		data[i+1] = 1
	}

	enc := roundTrip(t, data, 2)

	// 4096 / 193 = 21 полная серия + хвост 43: по 3 байта на серию
	assert.Equal(t, 22*3, len(enc))
}

func TestDistinctTuplesBound(t *testing.T) {
	for _, stride := range []int{1, 2, 4} {
		tuples := 256
		data := make([]byte, tuples*stride)
		for i := 0; i < tuples; i++ {
			data[i*stride] = byte(i)
		}

		enc := roundTrip(t, data, stride)

		overhead := (tuples + MaxLiteralRun - 1) / MaxLiteralRun
		assert.LessOrEqual(t, len(enc), len(data)+overhead)
		assert.Equal(t, byte(MaxLiteralRun-1), enc[0], "первая литеральная серия должна быть полной")
	}
}

func TestRepeatRunBoundary(t *testing.T) {
	run := func(n int) []byte {
		data := make([]byte, n*2)
		for i := 0; i < n; i++ {
			data[i*2] = 5
			data[i*2+1] = 9
		}
		return data
	}

	// ровно 193 - одна серия
	enc := roundTrip(t, run(193), 2)
	assert.Equal(t, []byte{255, 5, 9}, enc)

	// 194-й кортеж открывает новую серию (здесь литеральную из одного кортежа)
	enc = roundTrip(t, run(194), 2)
	assert.Equal(t, []byte{255, 5, 9, 0, 5, 9}, enc)

	// 195 - две серии повтора
	enc = roundTrip(t, run(195), 2)
	assert.Equal(t, []byte{255, 5, 9, 64, 5, 9}, enc)
}

func TestTwoIdenticalTuplesAreRepeat(t *testing.T) {
	enc := roundTrip(t, []byte{1, 2, 1, 2}, 2)
	assert.Equal(t, []byte{64, 1, 2}, enc)

	// литерал, затем пара, затем литерал
	enc = roundTrip(t, []byte{9, 3, 3, 4}, 1)
	assert.Equal(t, []byte{0, 9, 64, 3, 0, 4}, enc)
}

func TestInvalidStride(t *testing.T) {
	_, err := Encode([]byte{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidStride)

	_, err = Encode([]byte{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrInvalidStride)

	_, err = Decode([]byte{1}, -1)
	assert.ErrorIs(t, err, ErrInvalidStride)
}

func TestDecodeTruncated(t *testing.T) {
	// вторая литеральная серия обещает 3 кортежа, данных на полтора
	out, err := Decode([]byte{0, 1, 1, 2, 3, 4, 5}, 2)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, []byte{1, 1}, out, "полностью прочитанные серии сохраняются")

	// повтор без кортежа
	out, err = Decode([]byte{70, 1}, 2)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Empty(t, out)

	assert.NotPanics(t, func() {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 500; i++ {
			junk := make([]byte, rng.Intn(40))
			rng.Read(junk)
			_, _ = Decode(junk, 2)
		}
	})
}
