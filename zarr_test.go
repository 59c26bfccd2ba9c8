package ndmesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var metaOne = &ArrayMeta{
	ZarrFormat: Version,
	Shape:      []int{6, 5},
	Chunks:     []int{4, 2},
	Dtype:      DtypeOf[int32](),
	FillValue:  -1,
	Order:      OrderC,
}

func readKey(t *testing.T, s Store, key string) []byte {
	t.Helper()
	f, err := s.Get(key)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := NewBlock[int32](6, 5)
	i, j := NewIter("i"), NewIter("j")
	src.Ref(i, j).Assign(Sub(Mul(i, 10), j))

	for storeName, s := range testStores(t) {
		for _, compressor := range []string{"", "gzip", "zstd"} {
			for _, order := range []string{OrderC, OrderF} {
				for _, chunks := range [][]int{nil, {4, 2}, {1, 5}} {
					name := fmt.Sprintf("%s/%s/%s/%v", storeName, compressor, order, chunks)
					t.Run(name, func(t *testing.T) {
						opts := SaveOptions{Chunks: chunks, Order: order}
						if compressor != "" {
							opts.Compressor = &CompressionMeta{ID: compressor}
						}
						path := strings.ReplaceAll(name, "/", "_")
						_, err := Save[int32](s, "arrays/"+path, src, opts)
						require.NoError(t, err)

						got, err := Load[int32](s, "arrays/"+path)
						require.NoError(t, err)
						assert.Equal(t, src.Extents(), got.Extents())
						assert.Equal(t, src.Values(), got.Values())
					})
				}
			}
		}
	}
}

func TestFOrderLoadsAsPermutedSpace(t *testing.T) {
	s := NewMemoryStore()
	src := iotaBlock(2, 3)
	_, err := Save[int](s, "f", src, SaveOptions{Order: OrderF})
	require.NoError(t, err)

	// column-major bytes: element (i, j) at j*2+i
	raw := readKey(t, s, "f/0.0")
	got := make([]int64, 6)
	require.NoError(t, binary.Read(bytes.NewReader(raw), binary.LittleEndian, got))
	assert.Equal(t, []int64{0, 3, 1, 4, 2, 5}, got)

	b, err := Load[int](s, "f")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, b.Space().Permutation())
	assert.Equal(t, src.Values(), b.Values())
	assert.Equal(t, []int{0, 3, 1, 4, 2, 5}, b.Allocation().slice())
}

func TestEdgeChunksPaddedWithFill(t *testing.T) {
	s := NewMemoryStore()
	a, err := Create(s, "edge", metaOne, ModeWrite)
	require.NoError(t, err)
	src := NewBlock[int32](6, 5)
	src.Fill(3)
	require.NoError(t, WriteBlock[int32](a, src))

	raw := readKey(t, s, "edge/1.2")
	require.Len(t, raw, 4*2*4)
	got := make([]int32, 8)
	require.NoError(t, binary.Read(bytes.NewReader(raw), binary.LittleEndian, got))
	assert.Equal(t, []int32{3, -1, 3, -1, -1, -1, -1, -1}, got)
}

func TestMissingChunksReadFill(t *testing.T) {
	s := NewMemoryStore()
	a, err := Create(s, "sparse", metaOne, ModeWrite)
	require.NoError(t, err)

	b, err := ReadBlock[int32](a)
	require.NoError(t, err)
	for _, v := range b.Values() {
		require.Equal(t, int32(-1), v)
	}

	nan := *metaOne
	nan.Dtype = DtypeOf[float64]()
	nan.FillValue = FillValueNaN
	a, err = Create(s, "nan", &nan, ModeWrite)
	require.NoError(t, err)
	fb, err := ReadBlock[float64](a)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fb.Read(5, 4)))
}

func TestCreateWriteReplacesArray(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			sevens := NewBlock[int32](2, 2)
			sevens.Fill(7)
			_, err := Save[int32](s, "a", sevens, SaveOptions{Chunks: []int{1, 1}})
			require.NoError(t, err)

			meta := &ArrayMeta{Shape: []int{2, 2}, Chunks: []int{1, 1}, Dtype: DtypeOf[int32](), FillValue: 0}
			a, err := Create(s, "a", meta, ModeWrite)
			require.NoError(t, err)
			b, err := ReadBlock[int32](a)
			require.NoError(t, err)
			assert.Equal(t, []int32{0, 0, 0, 0}, b.Values())

			ok, err := s.Has("a/1.1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMetadataWrittenUnescaped(t *testing.T) {
	s := NewMemoryStore()
	_, err := Create(s, "m", metaOne, ModeWrite)
	require.NoError(t, err)
	raw := string(readKey(t, s, "m/.zarray"))
	assert.Contains(t, raw, `"dtype": "<i4"`)
	assert.NotContains(t, raw, `\u003c`)
}

func TestBigEndianChunks(t *testing.T) {
	s := NewMemoryStore()
	m := &ArrayMeta{
		Shape:  []int{3},
		Chunks: []int{3},
		Dtype:  Dtype{ByteOrder: BOBigEndian, BasicType: BTInteger, ByteSize: 2},
	}
	a, err := Create(s, "be", m, ModeWrite)
	require.NoError(t, err)
	require.NoError(t, WriteBlock[int16](a, WrapSlice([]int16{1, -2, 258}, 3)))
	assert.Equal(t, []byte{0, 1, 0xff, 0xfe, 1, 2}, readKey(t, s, "be/0"))

	b, err := ReadBlock[int16](a)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -2, 258}, b.Values())

	_, err = Save[int16](s, "be2", b, SaveOptions{Dtype: m.Dtype})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0xff, 0xfe, 1, 2}, readKey(t, s, "be2/0"))

	_, err = Save[int32](s, "bad", NewBlock[int32](3), SaveOptions{Dtype: m.Dtype})
	assert.ErrorIs(t, err, ErrDtypeMismatch)
}

func TestSlashSeparator(t *testing.T) {
	s := NewMemoryStore()
	_, err := Save[uint8](s, "sep", NewBlock[uint8](4, 4), SaveOptions{Chunks: []int{2, 2}, DimensionSeparator: "/"})
	require.NoError(t, err)
	assert.Contains(t, s.Keys(), "sep/1/1")
	assert.NotContains(t, s.Keys(), "sep/1.1")
}

func TestSaveView(t *testing.T) {
	s := NewMemoryStore()
	b := iotaBlock(4, 6)
	v := b.Permute(1, 0).Slice(Stepped(0, 6, 3))
	_, err := Save[int](s, "view", v, SaveOptions{})
	require.NoError(t, err)

	got, err := Load[int](s, "view")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, got.Extents())
	assert.Equal(t, v.Values(), got.Values())
}

func TestPersistenceModes(t *testing.T) {
	s := NewMemoryStore()
	src := NewBlock[int32](6, 5)

	_, err := Open(s, "modes", ModeRead)
	assert.ErrorIs(t, err, ErrNotfound)
	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeReadWrite})
	assert.ErrorIs(t, err, ErrNotfound)

	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeWriteFail})
	require.NoError(t, err)
	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeWriteFail})
	assert.ErrorIs(t, err, ErrExists)

	src.Fill(4)
	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeReadWrite})
	require.NoError(t, err)
	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeReadWriteCreate, Chunks: []int{1, 1}})
	require.NoError(t, err)

	a, err := Open(s, "modes", ModeRead)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 5}, a.Meta().Chunks, "mode a keeps existing metadata")
	err = WriteBlock[int32](a, src)
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = Save[int32](s, "modes", src, SaveOptions{Mode: ModeRead})
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = Create(s, "other", metaOne, ModeReadWrite)
	assert.Error(t, err)
	_, err = Open(s, "modes", ModeWrite)
	assert.Error(t, err)

	b, err := Load[int32](s, "modes")
	require.NoError(t, err)
	assert.Equal(t, int32(4), b.Read(5, 4))
}

func TestWriteBlockChecks(t *testing.T) {
	s := NewMemoryStore()
	a, err := Create(s, "checks", metaOne, ModeWrite)
	require.NoError(t, err)

	err = WriteBlock[int64](a, NewBlock[int64](6, 5))
	assert.ErrorIs(t, err, ErrDtypeMismatch)
	err = WriteBlock[int32](a, NewBlock[int32](5, 6))
	assert.Error(t, err)
	_, err = ReadBlock[float32](a)
	assert.ErrorIs(t, err, ErrDtypeMismatch)

	bad := *metaOne
	bad.Compressor = &CompressionMeta{ID: "blosc"}
	a, err = Create(s, "blosc", &bad, ModeWrite)
	require.NoError(t, err)
	assert.Error(t, WriteBlock[int32](a, NewBlock[int32](6, 5)))
}

func TestOpenRejectsInvalidMetadata(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("broken/.zarray", strings.NewReader(`{"zarr_format": 2, "shape": [4], "chunks": [4, 4], "dtype": "<i4", "order": "C"}`)))
	_, err := Open(s, "broken", ModeRead)
	assert.Error(t, err)

	require.NoError(t, s.Put("garbage/.zarray", strings.NewReader(`{`)))
	_, err = Open(s, "garbage", ModeRead)
	assert.Error(t, err)

	_, err = Open(s, "/", ModeRead)
	assert.Error(t, err)
}

func TestArrayInfo(t *testing.T) {
	s := NewMemoryStore()
	m := *metaOne
	m.Compressor = &CompressionMeta{ID: "gzip"}
	a, err := Create(s, "/group/info/", &m, ModeWrite)
	require.NoError(t, err)

	assert.Equal(t, "group/info", a.Path())
	assert.Equal(t, ModeWrite, a.Mode())
	assert.Equal(t, []int{6, 5}, a.Shape())

	info := a.Info()
	assert.Contains(t, info, "Data type         : <i4 (int32)")
	assert.Contains(t, info, "Compressor        : gzip")
	assert.Contains(t, info, "Store type        : MemoryStore")
	assert.Contains(t, info, "No. bytes         : 120")
	assert.Contains(t, info, "No. chunks        : 6")

	meta := a.Meta()
	meta.Shape[0] = 99
	assert.Equal(t, []int{6, 5}, a.Shape())
}

func TestCreateGroup(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, CreateGroup(s, "planes"))
	assert.JSONEq(t, `{"zarr_format": 2}`, string(readKey(t, s, "planes/.zgroup")))
}
