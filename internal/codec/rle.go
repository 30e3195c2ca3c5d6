// Package codec реализует RLE-кодек с шагом (stride): вход делится на кортежи
// по stride байт, серии одинаковых кортежей сворачиваются.
//
// Формат потока - чередование управляющих байтов и данных:
//
//	0..63   - литеральная серия: далее (v+1) разных кортежей как есть
//	64..255 - повтор: далее один кортеж, который повторяется (v-64+2) раз
//
// Константы подогнаны под диапазон одного байта и являются частью формата
// сохранений и сетевого протокола.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/logging"
)

const (
	// MaxLiteralRun - максимум кортежей в одной литеральной серии
	MaxLiteralRun = 64
	// MinRepeatRun - повтор короче двух кортежей не кодируется
	MinRepeatRun = 2
	// MaxRepeatRun - максимум кортежей в одной серии повтора
	MaxRepeatRun = 193

	repeatBase = 64
)

var (
	// ErrInvalidStride - stride <= 0 или длина входа не кратна stride
	ErrInvalidStride = errors.New("codec: invalid stride")
	// ErrTruncated - поток оборвался посреди серии
	ErrTruncated = errors.New("codec: truncated stream")
)

// Encode сжимает data, рассматривая её как последовательность кортежей по stride байт
func Encode(data []byte, stride int) ([]byte, error) {
	return AppendEncode(nil, data, stride)
}

// AppendEncode дописывает сжатое представление data в dst
func AppendEncode(dst, data []byte, stride int) ([]byte, error) {
	if stride <= 0 {
		return dst, fmt.Errorf("%w: %d", ErrInvalidStride, stride)
	}
	if len(data)%stride != 0 {
		return dst, fmt.Errorf("%w: длина %d не кратна %d", ErrInvalidStride, len(data), stride)
	}

	n := len(data) / stride
	tuple := func(i int) []byte { return data[i*stride : (i+1)*stride] }

	i := 0
	for i < n {
		run := repeatLength(data, stride, i, n)
		if run >= MinRepeatRun {
			dst = append(dst, byte(repeatBase+run-MinRepeatRun))
			dst = append(dst, tuple(i)...)
			i += run
			continue
		}

		// Литеральная серия: набираем кортежи, пока следующий не начинает повтор
		start := i
		count := 0
		for i < n && count < MaxLiteralRun {
			if i+1 < n && bytes.Equal(tuple(i), tuple(i+1)) {
				break
			}
			i++
			count++
		}
		dst = append(dst, byte(count-1))
		dst = append(dst, data[start*stride:i*stride]...)
	}
	return dst, nil
}

// repeatLength считает, сколько одинаковых кортежей начинается с позиции i (не больше MaxRepeatRun)
func repeatLength(data []byte, stride, i, n int) int {
	first := data[i*stride : (i+1)*stride]
	run := 1
	for j := i + 1; j < n && run < MaxRepeatRun; j++ {
		if !bytes.Equal(first, data[j*stride:(j+1)*stride]) {
			break
		}
		run++
	}
	return run
}

// Decode восстанавливает исходные байты. Оборванный хвост не приводит к панике:
// декодирование останавливается, в лог пишется предупреждение, возвращается
// уже раскодированная часть вместе с ErrTruncated.
func Decode(data []byte, stride int) ([]byte, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStride, stride)
	}

	out := make([]byte, 0, len(data)*2)
	i := 0
	for i < len(data) {
		ctrl := int(data[i])
		i++

		if ctrl < repeatBase {
			size := (ctrl + 1) * stride
			if i+size > len(data) {
				logging.Warn("RLE: литеральная серия на смещении %d обрывается (нужно %d байт, осталось %d)", i-1, size, len(data)-i)
				return out, fmt.Errorf("%w: литеральная серия на смещении %d", ErrTruncated, i-1)
			}
			out = append(out, data[i:i+size]...)
			i += size
			continue
		}

		if i+stride > len(data) {
			logging.Warn("RLE: серия повтора на смещении %d без кортежа", i-1)
			return out, fmt.Errorf("%w: серия повтора на смещении %d", ErrTruncated, i-1)
		}
		t := data[i : i+stride]
		for k := ctrl - repeatBase + MinRepeatRun; k > 0; k-- {
			out = append(out, t...)
		}
		i += stride
	}
	return out, nil
}
