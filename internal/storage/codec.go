package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/pilotsim/internal/snapshot"
)

// Codec сериализует снимки в JSON и сжимает zstd.
// Кодер и декодер zstd безопасны для параллельного EncodeAll/DecodeAll.
type Codec struct {
	once    sync.Once
	err     error
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var defaultCodec Codec

func (c *Codec) init() error {
	c.once.Do(func() {
		c.encoder, c.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if c.err != nil {
			return
		}
		c.decoder, c.err = zstd.NewReader(nil)
	})
	return c.err
}

// Encode упаковывает снимок
func (c *Codec) Encode(f *snapshot.Frame) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать снимок %d: %w", f.Frame, err)
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// Decode распаковывает снимок
func (c *Codec) Decode(data []byte) (*snapshot.Frame, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось распаковать снимок: %w", err)
	}
	var f snapshot.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("не удалось разобрать снимок: %w", err)
	}
	return &f, nil
}
