package ndmesh

import (
	"encoding/json"
	"fmt"
	"math"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions on an array store
	MTGroup MetaType = ".zgroup"
	// MTMetadata is the key for composite metadata
	MTMetadata MetaType = ".zmetadata"
)

type MetaTyper interface {
	MetaType() MetaType
}

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
	MTGroup:      {},
}

// KeyMetaType reports which metadata document a store key names. All
// metadata key names are 7 characters long.
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

type Attributes map[string]interface{}

func (Attributes) MetaType() MetaType { return MTAttributes }

// Group marks a logical path as a container of arrays and groups.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

func (Group) MetaType() MetaType { return MTGroup }

type ConsolidatedMetadata struct {
	ConsolidatedFormat int                  `json:"zarr_consolidated_format"`
	Metadata           map[string]MetaTyper `json:"metadata"`
}

type consolidatedMetaDecoder struct {
	ConsolidatedFormat int                        `json:"zarr_consolidated_format"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
}

func (m *ConsolidatedMetadata) UnmarshalJSON(d []byte) error {
	cd := consolidatedMetaDecoder{}
	if err := json.Unmarshal(d, &cd); err != nil {
		return err
	}
	cm := ConsolidatedMetadata{
		ConsolidatedFormat: cd.ConsolidatedFormat,
		Metadata:           map[string]MetaTyper{},
	}

	for key, data := range cd.Metadata {
		kt, ok := KeyMetaType(key)
		if !ok {
			return fmt.Errorf("invalid consolidated metadata key: %q", key)
		}

		switch kt {
		case MTArray:
			arr := &ArrayMeta{}
			if err := json.Unmarshal(data, arr); err != nil {
				return fmt.Errorf("reading %q metadata: %w", key, err)
			}
			cm.Metadata[key] = arr
		case MTAttributes:
			attr := Attributes{}
			if err := json.Unmarshal(data, &attr); err != nil {
				return fmt.Errorf("reading %q attributes: %w", key, err)
			}
			cm.Metadata[key] = attr
		case MTGroup:
			grp := Group{}
			if err := json.Unmarshal(data, &grp); err != nil {
				return fmt.Errorf("reading %q group: %w", key, err)
			}
			cm.Metadata[key] = grp
		}
	}

	*m = cm
	return nil
}

// ArrayMeta is the ".zarray" document describing one array.
type ArrayMeta struct {
	ZarrFormat int   `json:"zarr_format"`
	Shape      []int `json:"shape"`
	// Chunks is the shape every chunk is stored at, edge chunks included.
	Chunks []int `json:"chunks"`
	Dtype  Dtype `json:"dtype"`
	// Compressor is nil for raw chunks.
	Compressor *CompressionMeta `json:"compressor"`
	// FillValue is read by fill: nil, a number, or one of the FillValue
	// strings for floats.
	FillValue interface{} `json:"fill_value"`
	// Order is OrderC (last dimension fastest) or OrderF (first fastest).
	Order string `json:"order"`
	// Filters must be empty; Validate rejects filter pipelines.
	Filters []Filter `json:"filters"`
	// DimensionSeparator joins chunk coordinates in keys, "." when unset.
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// Validate checks the fields an Array needs to address chunks.
func (a *ArrayMeta) Validate() error {
	if a.ZarrFormat != Version {
		return fmt.Errorf("unsupported zarr_format %d", a.ZarrFormat)
	}
	if len(a.Shape) == 0 {
		return fmt.Errorf("array shape is empty")
	}
	if len(a.Chunks) != len(a.Shape) {
		return fmt.Errorf("chunks %v do not match shape %v", a.Chunks, a.Shape)
	}
	for d := range a.Shape {
		if a.Shape[d] <= 0 || a.Chunks[d] <= 0 {
			return fmt.Errorf("dimension %d: shape %d, chunk %d must be positive", d, a.Shape[d], a.Chunks[d])
		}
	}
	switch a.Order {
	case OrderC, OrderF:
	default:
		return fmt.Errorf("invalid order %q", a.Order)
	}
	switch a.DimensionSeparator {
	case "", ".", "/":
	default:
		return fmt.Errorf("invalid dimension_separator %q", a.DimensionSeparator)
	}
	if len(a.Filters) > 0 {
		return fmt.Errorf("filters are not supported")
	}
	return nil
}

// chunkPermutation is the Space permutation that lays out a chunk in the
// array's byte order.
func (a *ArrayMeta) chunkPermutation() []int {
	r := len(a.Shape)
	perm := identity(r)
	if a.Order == OrderF {
		for d := range perm {
			perm[d] = r - 1 - d
		}
	}
	return perm
}

// fill decodes FillValue as a float64; null reads as zero.
func (a *ArrayMeta) fill() (float64, error) {
	switch v := a.FillValue.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		switch v {
		case FillValueNaN:
			return math.NaN(), nil
		case FillValueInfinity:
			return math.Inf(1), nil
		case FillValueNegativeInfinity:
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("unsupported fill_value %v", a.FillValue)
}

type Filter struct {
	ID     string `json:"id"`
	Delta  string `json:"delta,omitempty"`
	Dtype  string `json:"dtype,omitempty"`
	AsType string `json:"astype,omitempty"`
}

const (
	OrderC = "C"
	OrderF = "F"
)

const (
	FillValueNaN              = "NaN"
	FillValueInfinity         = "Infinity"
	FillValueNegativeInfinity = "-Infinity"
)
