// Package mmfile memory-maps plane files so their bytes can back External
// allocations without a copy.
package mmfile

import "errors"

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("mmfile: mapping closed")

// Mapping is a mapped file. Writes to Data reach the file when the mapping
// is writable; Sync forces them to disk.
type Mapping struct {
	Data     []byte
	path     string
	writable bool
	closed   bool
}

// Writable reports whether the file was mapped for writing.
func (m *Mapping) Writable() bool { return m.writable }

// Path returns the mapped file's path.
func (m *Mapping) Path() string { return m.path }
