package ndmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want Range
	}{
		{"3", Index(3)},
		{"1:4", Span(1, 4)},
		{"1:9:2", Stepped(1, 9, 2)},
		{"2:", From(2)},
		{"::3", FromStep(0, 3)},
		{"1::2", FromStep(1, 2)},
		{":", All()},
		{"", All()},
		{" 0 : 2 ", Span(0, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, in := range []string{"a", "1:b", "1:2:3:4", "0:4:0", "0:4:-1"} {
		_, err := ParseRange(in)
		assert.Error(t, err, in)
	}
}

func TestRangeResolve(t *testing.T) {
	stop, n := From(2).resolve(10)
	assert.Equal(t, 10, stop)
	assert.Equal(t, 8, n)

	_, n = Stepped(0, 10, 3).resolve(99)
	assert.Equal(t, 4, n)

	assert.True(t, All().ToEnd())
	assert.False(t, Span(0, 1).ToEnd())
	assert.Equal(t, "1:4:1", Span(1, 4).String())
	assert.Equal(t, "2::3", FromStep(2, 3).String())

	requireContract(t, ErrEmptyRange, func() { From(5).resolve(5) })
}
