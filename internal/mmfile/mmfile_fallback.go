//go:build !unix

package mmfile

import "os"

// Map reads the entire file when mmap is not available. Sync writes a
// writable copy back.
func Map(path string, writable bool) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{Data: data, path: path, writable: writable}, nil
}

func (m *Mapping) Sync() error {
	if m.closed {
		return ErrClosed
	}
	if !m.writable {
		return nil
	}
	return os.WriteFile(m.path, m.Data, 0o644)
}

func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	err := m.Sync()
	m.closed = true
	m.Data = nil
	return err
}
