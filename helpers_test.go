package ndmesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// requireContract runs fn and requires it to panic with an error wrapping
// sentinel.
func requireContract(t *testing.T, sentinel error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic wrapping %v", sentinel)
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, sentinel)
	}()
	fn()
}

// iotaBlock returns a heap block whose elements hold their row-major index.
func iotaBlock(extents ...int) *Block[int] {
	b := NewBlock[int](extents...)
	for i := range b.alloc.data {
		b.alloc.data[i] = i
	}
	return b
}
