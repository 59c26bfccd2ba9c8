package ndmesh

import (
	"fmt"

	"github.com/qri-io/ndmesh/internal/mmfile"
)

// MappedPlane is a byte Block whose External storage is a memory-mapped
// file. The Block must not be used after Close.
type MappedPlane struct {
	*Block[uint8]
	m *mmfile.Mapping
}

// MapPlane maps the file at path and addresses its first product(extents)
// bytes in row-major order. With writable set, writes through the Block
// and any View of it land in the file.
func MapPlane(path string, writable bool, extents ...int) (*MappedPlane, error) {
	m, err := mmfile.Map(path, writable)
	if err != nil {
		return nil, err
	}
	space := NewSpace(extents...)
	if len(m.Data) < space.Size() {
		m.Close()
		return nil, fmt.Errorf("%s holds %d bytes, extents %v need %d", path, len(m.Data), extents, space.Size())
	}
	L.Debug("mapped plane", "path", path, "extents", extents, "writable", writable)
	return &MappedPlane{Block: NewBlockIn(space, WrapExternal(m.Data)), m: m}, nil
}

// Sync flushes writes to the file.
func (p *MappedPlane) Sync() error { return p.m.Sync() }

// Close unmaps the file.
func (p *MappedPlane) Close() error { return p.m.Close() }
