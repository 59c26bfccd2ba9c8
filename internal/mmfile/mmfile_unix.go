//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps the file at path. A writable mapping is shared with the file.
func Map(path string, writable bool) (*Mapping, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close() // mapping keeps pages alive

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	m := &Mapping{path: path, writable: writable}
	if size == 0 {
		m.Data = []byte{}
		return m, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", size)
	}
	m.Data, err = unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: mapping %s: %w", path, err)
	}
	return m, nil
}

// Sync flushes a writable mapping to disk. It is a no-op when read only.
func (m *Mapping) Sync() error {
	if m.closed {
		return ErrClosed
	}
	if !m.writable || len(m.Data) == 0 {
		return nil
	}
	return unix.Msync(m.Data, unix.MS_SYNC)
}

// Close unmaps the file. Closing twice is a no-op.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	data := m.Data
	m.Data = nil
	if len(data) == 0 {
		return nil
	}
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		return nil
	}
	return err
}
