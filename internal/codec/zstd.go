package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Zstd - общий zstd-кодек для хранилища и репликации. EncodeAll/DecodeAll
// безопасны для конкурентного вызова, поэтому один экземпляр на процесс.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd создаёт кодек с уровнем SpeedDefault
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// MustZstd - NewZstd, паникующий при ошибке (ошибка возможна только при неверных опциях)
func MustZstd() *Zstd {
	z, err := NewZstd()
	if err != nil {
		panic(err)
	}
	return z
}

// Compress сжимает src
func (z *Zstd) Compress(src []byte) []byte {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2+16))
}

// Decompress распаковывает src
func (z *Zstd) Decompress(src []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

// Close освобождает ресурсы кодека
func (z *Zstd) Close() {
	z.enc.Close()
	z.dec.Close()
}
