package storage

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/klauspost/compress/zstd"
)

// chunkCodec сериализует ChunkData: JSON, сжатый zstd.
// EncodeAll/DecodeAll безопасны для конкурентного вызова.
type chunkCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newChunkCodec() (*chunkCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd кодера: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("ошибка создания zstd декодера: %w", err)
	}
	return &chunkCodec{encoder: encoder, decoder: decoder}, nil
}

// encode возвращает сжатые данные и размер JSON до сжатия
func (c *chunkCodec) encode(data *world.ChunkData) ([]byte, int, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	return c.encoder.EncodeAll(raw, nil), len(raw), nil
}

func (c *chunkCodec) decode(compressed []byte) (*world.ChunkData, error) {
	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки чанка: %w", err)
	}

	var data world.ChunkData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка: %w", err)
	}
	return &data, nil
}

func (c *chunkCodec) close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

func chunkPrefix(gen uint64) string {
	return fmt.Sprintf("chunk:%016x:", gen)
}

func chunkKey(gen uint64, coord vec.Vec2) string {
	return fmt.Sprintf("%s%d:%d", chunkPrefix(gen), coord.X, coord.Y)
}
