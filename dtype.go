package ndmesh

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Dtype is a zarr simple data type, written as a NumPy typestr of three
// parts:
//   - the byte order: "<" little-endian, ">" big-endian, "|" not relevant
//   - the basic type: "b" bool, "i" int, "u" uint, "f" float, plus the
//     non-numeric codes zarr defines ("c", "m", "M", "S", "U", "V")
//   - the number of bytes per element
//
// Only integer and float dtypes can back a Block.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// ParseDtype reads a typestr such as "<i4" or ">f8".
func ParseDtype(s string) (dt Dtype, err error) {
	// the python implementation has been seen HTML-escaping the byte order
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	if dt.ByteOrder, err = ParseByteOrder(rune(s[0])); err != nil {
		return dt, err
	}
	if dt.BasicType, err = ParseBasicType(rune(s[1])); err != nil {
		return dt, err
	}

	sizeStr := s[2:]
	if i := strings.IndexByte(sizeStr, '['); i >= 0 {
		sizeStr, dt.Units = sizeStr[:i], sizeStr[i:]
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size in %q: %w", s, err)
	}
	dt.ByteSize = size
	return dt, nil
}

// DtypeOf returns the little-endian dtype that stores E.
func DtypeOf[E Number]() Dtype {
	var zero E
	t := reflect.TypeOf(zero)
	dt := Dtype{ByteOrder: BOLittleEndian, ByteSize: int(t.Size())}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		dt.BasicType = BTFloatingPoint
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		dt.BasicType = BTUnsigned
	default:
		dt.BasicType = BTInteger
	}
	if dt.ByteSize == 1 {
		dt.ByteOrder = BONotRelevant
	}
	return dt
}

// Holds reports whether elements of dt can be decoded into E without
// changing width or class. Byte order is not compared.
func Holds[E Number](dt Dtype) bool {
	want := DtypeOf[E]()
	return dt.BasicType == want.BasicType && dt.ByteSize == want.ByteSize && dt.Units == ""
}

func (dt Dtype) String() string {
	s := fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
	if dt.Units != "" {
		s += dt.Units
	}
	return s
}

// MarshalJSON writes the typestr unescaped. json.Marshal escapes "<" and ">"
// again on the way out; encodeMeta does not.
func (dt Dtype) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(dt.String()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return fmt.Errorf("structured dtypes are not supported: %w", err)
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// putElem encodes v into buf, which holds exactly dt.ByteSize bytes.
func putElem[E Number](dt Dtype, order binary.ByteOrder, buf []byte, v E) {
	if dt.BasicType == BTFloatingPoint {
		if dt.ByteSize == 4 {
			order.PutUint32(buf, math.Float32bits(float32(v)))
		} else {
			order.PutUint64(buf, math.Float64bits(float64(v)))
		}
		return
	}

	u := uint64(int64(v))
	if dt.BasicType == BTUnsigned {
		u = uint64(v)
	}
	switch dt.ByteSize {
	case 1:
		buf[0] = byte(u)
	case 2:
		order.PutUint16(buf, uint16(u))
	case 4:
		order.PutUint32(buf, uint32(u))
	default:
		order.PutUint64(buf, u)
	}
}

// getElem decodes one element of dt from buf.
func getElem[E Number](dt Dtype, order binary.ByteOrder, buf []byte) E {
	if dt.BasicType == BTFloatingPoint {
		if dt.ByteSize == 4 {
			return E(math.Float32frombits(order.Uint32(buf)))
		}
		return E(math.Float64frombits(order.Uint64(buf)))
	}

	signed := dt.BasicType == BTInteger
	switch dt.ByteSize {
	case 1:
		if signed {
			return E(int8(buf[0]))
		}
		return E(buf[0])
	case 2:
		if signed {
			return E(int16(order.Uint16(buf)))
		}
		return E(order.Uint16(buf))
	case 4:
		if signed {
			return E(int32(order.Uint32(buf)))
		}
		return E(order.Uint32(buf))
	default:
		if signed {
			return E(int64(order.Uint64(buf)))
		}
		return E(order.Uint64(buf))
	}
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]binary.ByteOrder{
	BONotRelevant:  binary.LittleEndian,
	BOLittleEndian: binary.LittleEndian,
	BOBigEndian:    binary.BigEndian,
}

// Binary returns the encoding/binary order for o.
func (o ByteOrder) Binary() binary.ByteOrder {
	if bo, ok := byteOrders[o]; ok {
		return bo
	}
	return binary.LittleEndian
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
