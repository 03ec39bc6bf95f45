package storage

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// codec compresses stored values. The encoder and decoder are created once;
// EncodeAll and DecodeAll are safe for concurrent use.
type codec struct {
	once    sync.Once
	err     error
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var values codec

func (c *codec) init() error {
	c.once.Do(func() {
		c.encoder, c.err = zstd.NewWriter(nil)
		if c.err != nil {
			return
		}
		c.decoder, c.err = zstd.NewReader(nil)
	})
	return c.err
}

func (c *codec) compress(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return c.encoder.EncodeAll(data, nil), nil
}

func (c *codec) decompress(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress value: %w", err)
	}
	return out, nil
}
