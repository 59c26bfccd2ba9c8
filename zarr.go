package ndmesh

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Version is the zarr storage format this package reads and writes.
	Version = 2
)

// Array is a zarr array in a Store. Element data moves in and out of it as
// Blocks through ReadBlock, WriteBlock, Load and Save.
type Array struct {
	path  Path
	store Store
	mode  PersistenceMode
	meta  *ArrayMeta
}

// Viewer is anything that can present itself as a View: Blocks and Views.
type Viewer[E Number] interface {
	View() *View[E]
}

func openPath(path string) (Path, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("array path is empty")
	}
	return p, nil
}

func metaKey(p Path) string {
	return p.Join(string(MTArray)).String()
}

func readMeta(store Store, p Path) (*ArrayMeta, error) {
	f, err := store.Get(metaKey(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &ArrayMeta{}
	if err := json.NewDecoder(f).Decode(m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", metaKey(p), err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", metaKey(p), err)
	}
	return m, nil
}

// encodeMeta renders a metadata document the way zarr writes it: indented
// and with "<" and ">" in dtypes left unescaped.
func encodeMeta(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMeta(store Store, p Path, m *ArrayMeta) error {
	data, err := encodeMeta(m)
	if err != nil {
		return err
	}
	return store.Put(metaKey(p), bytes.NewReader(data))
}

// Create writes meta for a new array at path. ModeWrite deletes everything
// stored below path first, ModeWriteFail returns ErrExists if one is present and
// ModeReadWriteCreate opens an existing array unchanged.
func Create(store Store, path string, meta *ArrayMeta, mode PersistenceMode) (*Array, error) {
	p, err := openPath(path)
	if err != nil {
		return nil, err
	}
	m := *meta
	if m.ZarrFormat == 0 {
		m.ZarrFormat = Version
	}
	if m.Order == "" {
		m.Order = OrderC
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	exists, err := store.Has(metaKey(p))
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeWrite:
		if err := store.Delete(p.String()); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", p, err)
		}
	case ModeWriteFail:
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrExists, p)
		}
	case ModeReadWriteCreate:
		if exists {
			return Open(store, path, mode)
		}
	default:
		return nil, fmt.Errorf("cannot create array in mode %q", mode)
	}

	if err := writeMeta(store, p, &m); err != nil {
		return nil, err
	}
	L.Debug("created array", "path", p.String(), "shape", m.Shape, "dtype", m.Dtype.String())
	return &Array{path: p, store: store, mode: mode, meta: &m}, nil
}

// Open reads the metadata of an existing array. ModeRead forbids writes.
func Open(store Store, path string, mode PersistenceMode) (*Array, error) {
	switch mode {
	case ModeRead, ModeReadWrite, ModeReadWriteCreate:
	default:
		return nil, fmt.Errorf("cannot open array in mode %q", mode)
	}
	p, err := openPath(path)
	if err != nil {
		return nil, err
	}

	m, err := readMeta(store, p)
	if err != nil {
		return nil, err
	}
	return &Array{
		path:  p,
		store: store,
		mode:  mode,
		meta:  m,
	}, nil
}

func (a *Array) Path() string {
	return a.path.String()
}

func (a *Array) Mode() PersistenceMode { return a.mode }

// Meta returns a copy of the array metadata.
func (a *Array) Meta() ArrayMeta {
	m := *a.meta
	m.Shape = clone(a.meta.Shape)
	m.Chunks = clone(a.meta.Chunks)
	return m
}

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int { return clone(a.meta.Shape) }

// Space returns the space a loaded Block is built over: the array shape
// with a reversed permutation for "F" order.
func (a *Array) Space() Space {
	return NewSpaceWith(a.meta.Shape, WithPermutation(a.meta.chunkPermutation()...))
}

// Info summarizes the array in the layout zarr tools print.
func (a *Array) Info() string {
	m := a.meta
	compressor := "None"
	if m.Compressor != nil {
		compressor = m.Compressor.ID
	}
	size := 1
	for _, n := range m.Shape {
		size *= n
	}
	nchunks := 1
	for d := range m.Shape {
		nchunks *= ceilDiv(m.Shape[d], m.Chunks[d])
	}

	var b strings.Builder
	row := func(k string, v interface{}) { fmt.Fprintf(&b, "%-18s: %v\n", k, v) }
	row("Type", "ndmesh.Array")
	row("Path", a.path.String())
	row("Data type", fmt.Sprintf("%s (%s%d)", m.Dtype, m.Dtype.BasicType.Human(), m.Dtype.ByteSize*8))
	row("Shape", m.Shape)
	row("Chunk shape", m.Chunks)
	row("Order", m.Order)
	row("Read-only", a.mode == ModeRead)
	row("Compressor", compressor)
	row("Store type", a.store.Type())
	row("No. bytes", size*m.Dtype.ByteSize)
	row("No. chunks", nchunks)
	return b.String()
}

func (a *Array) chunkPath(coords []int) Path {
	return a.path.Join(chunkKey(coords, a.meta.DimensionSeparator))
}

func (a *Array) chunkSpace() Space {
	return NewSpaceWith(a.meta.Chunks, WithPermutation(a.meta.chunkPermutation()...))
}

func (a *Array) openChunk(coords []int) (io.ReadCloser, error) {
	f, err := a.store.Get(a.chunkPath(coords).String())
	if err != nil || a.meta.Compressor == nil {
		return f, err
	}
	r, err := a.meta.Compressor.Decompressor(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return readCloser{r, f}, nil
}

type readCloser struct {
	io.ReadCloser
	under io.Closer
}

func (rc readCloser) Close() error {
	err := rc.ReadCloser.Close()
	if cerr := rc.under.Close(); err == nil {
		err = cerr
	}
	return err
}

func checkDtype[E Number](a *Array) error {
	if !Holds[E](a.meta.Dtype) {
		return fmt.Errorf("%w: array %s holds %s, element type needs %s", ErrDtypeMismatch, a.path, a.meta.Dtype, DtypeOf[E]())
	}
	return nil
}

// ReadBlock decodes the whole array into a new heap Block over a.Space().
// Chunks absent from the store read as the fill value.
func ReadBlock[E Number](a *Array) (*Block[E], error) {
	if err := checkDtype[E](a); err != nil {
		return nil, err
	}
	fill, err := a.meta.fill()
	if err != nil {
		return nil, err
	}

	space := a.Space()
	dst := NewBlockIn(space, NewHeap[E](space.Size()))
	dst.Fill(E(fill))

	cs := a.chunkSpace()
	n := cs.Size()
	esize := a.meta.Dtype.ByteSize
	order := a.meta.Dtype.ByteOrder.Binary()
	buf := make([]byte, n*esize)
	data := make([]E, n)
	chunk := NewBlockIn(cs, WrapExternal(data))

	read := 0
	for _, proj := range chunkProjections(a.meta.Shape, a.meta.Chunks) {
		f, err := a.openChunk(proj.ChunkCoords)
		if errors.Is(err, ErrNotfound) {
			continue
		} else if err != nil {
			return nil, err
		}
		_, err = io.ReadFull(f, buf)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading chunk %s: %w", a.chunkPath(proj.ChunkCoords), err)
		}
		for i := range data {
			data[i] = getElem[E](a.meta.Dtype, order, buf[i*esize:(i+1)*esize])
		}
		copyView(dst.Slice(proj.OutSelection...), chunk.Slice(proj.ChunkSelection...))
		read++
	}
	L.Debug("read array", "path", a.path.String(), "chunks", read)
	return dst, nil
}

// WriteBlock encodes src, which must have the array's shape, into chunks.
// Edge chunks are padded with the fill value.
func WriteBlock[E Number](a *Array, src Viewer[E]) error {
	if a.mode == ModeRead {
		return fmt.Errorf("%w: %s", ErrReadOnly, a.path)
	}
	if err := checkDtype[E](a); err != nil {
		return err
	}
	view := src.View()
	if !equalInts(view.Extents(), a.meta.Shape) {
		return fmt.Errorf("block extents %v do not match array shape %v", view.Extents(), a.meta.Shape)
	}
	fill, err := a.meta.fill()
	if err != nil {
		return err
	}

	cs := a.chunkSpace()
	n := cs.Size()
	esize := a.meta.Dtype.ByteSize
	order := a.meta.Dtype.ByteOrder.Binary()
	data := make([]E, n)
	chunk := NewBlockIn(cs, WrapExternal(data))

	projs := chunkProjections(a.meta.Shape, a.meta.Chunks)
	for _, proj := range projs {
		chunk.Fill(E(fill))
		copyView(chunk.Slice(proj.ChunkSelection...), view.Slice(proj.OutSelection...))

		buf := make([]byte, n*esize)
		for i, v := range data {
			putElem(a.meta.Dtype, order, buf[i*esize:(i+1)*esize], v)
		}
		if err := a.putChunk(proj.ChunkCoords, buf); err != nil {
			return err
		}
	}
	L.Debug("wrote array", "path", a.path.String(), "chunks", len(projs))
	return nil
}

func (a *Array) putChunk(coords []int, raw []byte) error {
	key := a.chunkPath(coords).String()
	if a.meta.Compressor == nil {
		return a.store.Put(key, bytes.NewReader(raw))
	}

	var buf bytes.Buffer
	w, err := a.meta.Compressor.Compressor(&buf)
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("compressing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compressing %s: %w", key, err)
	}
	return a.store.Put(key, &buf)
}

// copyView assigns src to dst elementwise; both must have the same extents.
func copyView[E Number](dst, src *View[E]) {
	idx := make([]interface{}, dst.Rank())
	for d := range idx {
		idx[d] = NewIter(fmt.Sprintf("d%d", d))
	}
	dst.Ref(idx...).Assign(src.Ref(idx...))
}

// SaveOptions configures Save. Zero values pick DtypeOf[E], one chunk
// covering the whole array, "C" order, no compressor, a zero fill value and
// ModeWrite. A set Dtype must hold E; it chooses the stored byte order.
type SaveOptions struct {
	Dtype              Dtype
	Chunks             []int
	Order              string
	Compressor         *CompressionMeta
	DimensionSeparator string
	FillValue          interface{}
	Mode               PersistenceMode
}

// Save stores src as a new array at path.
func Save[E Number](store Store, path string, src Viewer[E], opts SaveOptions) (*Array, error) {
	shape := src.View().Extents()
	meta := &ArrayMeta{
		ZarrFormat:         Version,
		Shape:              shape,
		Chunks:             opts.Chunks,
		Dtype:              DtypeOf[E](),
		Compressor:         opts.Compressor,
		FillValue:          opts.FillValue,
		Order:              opts.Order,
		DimensionSeparator: opts.DimensionSeparator,
	}
	if opts.Dtype != (Dtype{}) {
		if !Holds[E](opts.Dtype) {
			return nil, fmt.Errorf("%w: cannot store %s elements as %s", ErrDtypeMismatch, DtypeOf[E](), opts.Dtype)
		}
		meta.Dtype = opts.Dtype
	}
	if meta.Chunks == nil {
		meta.Chunks = clone(shape)
	}
	if meta.FillValue == nil {
		meta.FillValue = 0
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeWrite
	}

	var a *Array
	var err error
	switch mode {
	case ModeRead:
		return nil, fmt.Errorf("%w: cannot save in mode %q", ErrReadOnly, mode)
	case ModeReadWrite:
		a, err = Open(store, path, mode)
	default:
		a, err = Create(store, path, meta, mode)
	}
	if err != nil {
		return nil, err
	}
	if err := WriteBlock(a, src); err != nil {
		return nil, err
	}
	return a, nil
}

// Load reads the array at path into a new Block.
func Load[E Number](store Store, path string) (*Block[E], error) {
	a, err := Open(store, path, ModeRead)
	if err != nil {
		return nil, err
	}
	return ReadBlock[E](a)
}

type PersistenceMode string

const (
	// Persistence mode:
	// ‘r’ means read only (must exist);
	ModeRead PersistenceMode = "r"
	//‘r+’ means read/write (must exist)
	ModeReadWrite PersistenceMode = "r+"
	// ‘a’ means read/write (create if doesn’t exist)
	ModeReadWriteCreate PersistenceMode = "a"
	// ‘w’ means create (overwrite if exists)
	ModeWrite PersistenceMode = "w"
	// ‘w-’ means create (fail if exists).
	ModeWriteFail PersistenceMode = "w-"
)

// CreateGroup stores group metadata under the “.zgroup” key at path. A group
// exists at logical path “foo/bar” if the “foo/bar/.zgroup” key exists in
// the store.
func CreateGroup(store Store, path string) error {
	p, err := NewPath(path)
	if err != nil {
		return err
	}
	data, err := encodeMeta(Group{ZarrFormat: Version})
	if err != nil {
		return err
	}
	return store.Put(p.Join(string(MTGroup)).String(), bytes.NewReader(data))
}
