package replication

import (
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/codec"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/vec"
)

// EventChunkData - тип события с полными байтами чанка
const EventChunkData = "ChunkData"

// Ключи метаданных конверта
const (
	MetaChunk    = "chunk"    // координаты чанка "x:y:z"
	MetaEncoding = "encoding" // EncodingRaw или EncodingZstd
)

// Кодировки полезной нагрузки
const (
	EncodingRaw  = "raw"
	EncodingZstd = "zstd"
)

// ErrBadPayload - конверт не удалось разобрать
var ErrBadPayload = errors.New("replication: битая полезная нагрузка")

// NewChunkEnvelope упаковывает сериализованный чанк в конверт.
// z == nil - без дополнительного сжатия.
func NewChunkEnvelope(source string, pos vec.Vec3, data []byte, z *codec.Zstd) *eventbus.Envelope {
	encoding := EncodingRaw
	if z != nil {
		data = z.Compress(data)
		encoding = EncodingZstd
	}

	ev := eventbus.NewEnvelope(source, EventChunkData, data)
	// Полная замена чанка: при переполнении шины не отбрасывать
	ev.Priority = 7
	ev.Metadata[MetaChunk] = pos.Key()
	ev.Metadata[eventbus.MetaPartition] = pos.Key()
	ev.Metadata[MetaEncoding] = encoding
	return ev
}

// DecodeChunkEnvelope достаёт координаты и сериализованные байты чанка
func DecodeChunkEnvelope(ev *eventbus.Envelope, z *codec.Zstd) (vec.Vec3, []byte, error) {
	if ev.EventType != EventChunkData {
		return vec.Vec3{}, nil, fmt.Errorf("%w: тип %q", ErrBadPayload, ev.EventType)
	}
	pos, err := vec.ParseKey(ev.Metadata[MetaChunk])
	if err != nil {
		return vec.Vec3{}, nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch ev.Metadata[MetaEncoding] {
	case EncodingRaw, "":
		return pos, ev.Payload, nil
	case EncodingZstd:
		if z == nil {
			return pos, nil, fmt.Errorf("%w: zstd не настроен", ErrBadPayload)
		}
		data, err := z.Decompress(ev.Payload)
		if err != nil {
			return pos, nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return pos, data, nil
	default:
		return pos, nil, fmt.Errorf("%w: кодировка %q", ErrBadPayload, ev.Metadata[MetaEncoding])
	}
}
