package ndmesh

import (
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// https://zarr.readthedocs.io/en/stable/spec/v2.html#metadata
const zarrDocExample = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"filters": [
			{"id": "delta", "dtype": "<f8", "astype": "<f4"}
	],
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	require.NoError(t, json.Unmarshal([]byte(zarrDocExample), m))

	assert.Equal(t, []int{10000, 10000}, m.Shape)
	assert.Equal(t, []int{1000, 1000}, m.Chunks)
	assert.Equal(t, "<f8", m.Dtype.String())
	require.NotNil(t, m.Compressor)
	assert.Equal(t, "lz4", m.Compressor.Cname)
	require.Len(t, m.Filters, 1)
	assert.Equal(t, "delta", m.Filters[0].ID)

	fill, err := m.fill()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(fill))

	// filters parse but Validate rejects them
	assert.Error(t, m.Validate())
	m.Filters = nil
	assert.NoError(t, m.Validate())
}

func TestMetadataNulls(t *testing.T) {
	m := &ArrayMeta{
		ZarrFormat: Version,
		Shape:      []int{4},
		Chunks:     []int{2},
		Dtype:      DtypeOf[int32](),
		Order:      OrderC,
	}
	data, err := encodeMeta(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dtype": "<i4"`)
	assert.JSONEq(t, `{
		"zarr_format": 2,
		"shape": [4],
		"chunks": [2],
		"dtype": "<i4",
		"compressor": null,
		"fill_value": null,
		"order": "C",
		"filters": null
	}`, string(data))

	fill, err := m.fill()
	require.NoError(t, err)
	assert.Equal(t, 0.0, fill)
}

func TestMetadataValidate(t *testing.T) {
	valid := func() *ArrayMeta {
		return &ArrayMeta{ZarrFormat: 2, Shape: []int{4, 4}, Chunks: []int{2, 2}, Dtype: DtypeOf[uint8](), Order: OrderF}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(m *ArrayMeta)
	}{
		{"format", func(m *ArrayMeta) { m.ZarrFormat = 3 }},
		{"empty shape", func(m *ArrayMeta) { m.Shape, m.Chunks = nil, nil }},
		{"chunk rank", func(m *ArrayMeta) { m.Chunks = []int{2} }},
		{"zero chunk", func(m *ArrayMeta) { m.Chunks = []int{2, 0} }},
		{"order", func(m *ArrayMeta) { m.Order = "Z" }},
		{"separator", func(m *ArrayMeta) { m.DimensionSeparator = "-" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestMetadataFill(t *testing.T) {
	for in, want := range map[interface{}]float64{
		3.0:                       3,
		7:                         7,
		FillValueInfinity:         math.Inf(1),
		FillValueNegativeInfinity: math.Inf(-1),
	} {
		got, err := (&ArrayMeta{FillValue: in}).fill()
		require.NoError(t, err)
		assert.Equal(t, want, got, "%v", in)
	}
	_, err := (&ArrayMeta{FillValue: "bogus"}).fill()
	assert.Error(t, err)
}

func TestChunkPermutation(t *testing.T) {
	m := &ArrayMeta{Shape: []int{2, 3, 4}, Order: OrderF}
	assert.Equal(t, []int{2, 1, 0}, m.chunkPermutation())
	m.Order = OrderC
	assert.Equal(t, []int{0, 1, 2}, m.chunkPermutation())
}

func TestConsolidatedMetadata(t *testing.T) {
	cm := &ConsolidatedMetadata{}
	f, err := os.Open("./testdata/example.zmetadata")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, json.NewDecoder(f).Decode(cm))
	assert.Equal(t, 1, cm.ConsolidatedFormat)
	require.Len(t, cm.Metadata, 4)

	arr, ok := cm.Metadata["recon/.zarray"].(*ArrayMeta)
	require.True(t, ok)
	assert.Equal(t, []int{32, 48}, arr.Shape)
	assert.Equal(t, "zstd", arr.Compressor.ID)
	assert.Equal(t, MTArray, arr.MetaType())

	attrs, ok := cm.Metadata["recon/.zattrs"].(Attributes)
	require.True(t, ok)
	assert.Equal(t, 7.0, attrs["frame"])

	grp, ok := cm.Metadata[".zgroup"].(Group)
	require.True(t, ok)
	assert.Equal(t, 2, grp.ZarrFormat)
	assert.Equal(t, MTGroup, grp.MetaType())
}

func TestConsolidatedMetadataBadKey(t *testing.T) {
	cm := &ConsolidatedMetadata{}
	err := json.Unmarshal([]byte(`{"metadata": {"foo": {}}, "zarr_consolidated_format": 1}`), cm)
	assert.Error(t, err)
}

func TestKeyMetaType(t *testing.T) {
	mt, ok := KeyMetaType("a/b/.zarray")
	assert.True(t, ok)
	assert.Equal(t, MTArray, mt)

	_, ok = KeyMetaType("a/b/0.0")
	assert.False(t, ok)
	_, ok = KeyMetaType("x")
	assert.False(t, ok)
}
