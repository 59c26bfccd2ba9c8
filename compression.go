package ndmesh

import (
	"fmt"
	"io"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta defines the chunk compressors this package understands.
type CompressionMeta struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// codec ids as zarr writes them, mapped to dataset compression formats
var compressionFormats = map[string]string{
	"gzip": "gzip",
	"zstd": "zst",
}

func (m *CompressionMeta) format() (string, error) {
	f, ok := compressionFormats[m.ID]
	if !ok {
		return "", fmt.Errorf("unsupported compressor %q", m.ID)
	}
	return f, nil
}

// Decompressor wraps r in the configured decompressor.
func (m *CompressionMeta) Decompressor(r io.Reader) (io.ReadCloser, error) {
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	return compression.Decompressor(f, r)
}

// Compressor wraps w in the configured compressor. Close the returned
// writer to flush it.
func (m *CompressionMeta) Compressor(w io.Writer) (io.WriteCloser, error) {
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	return compression.Compressor(f, w)
}
