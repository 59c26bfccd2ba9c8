package main

import (
	"fmt"
	"strconv"

	"github.com/qri-io/ndmesh"
	"github.com/spf13/cobra"
)

var (
	createShape      string
	createDtype      string
	createChunks     string
	createOrder      string
	createCompressor string
	createFill       string
	createSeparator  string
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <dir> <array>",
		Short: "Create an array filled with a pattern",
		Long: `The create command writes a new array into the zarr directory <dir>.

Example:
  ndmesh create data.zarr plane --shape 32,32 --dtype "|u1" --fill iota
  ndmesh create data.zarr grid --shape 4,4 --chunks 2,2 --order F --compressor gzip`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	cmd.Flags().StringVar(&createShape, "shape", "", "Comma separated array extents (required)")
	cmd.Flags().StringVar(&createDtype, "dtype", "<i4", "Element dtype")
	cmd.Flags().StringVar(&createChunks, "chunks", "", "Comma separated chunk extents (default: one chunk)")
	cmd.Flags().StringVar(&createOrder, "order", ndmesh.OrderC, "Chunk memory layout, C or F")
	cmd.Flags().StringVar(&createCompressor, "compressor", "", "Chunk compressor: gzip or zstd")
	cmd.Flags().StringVar(&createFill, "fill", "iota", "Contents: iota, zero or a number")
	cmd.Flags().StringVar(&createSeparator, "separator", ".", "Chunk key dimension separator, . or /")
	return cmd
}

func runCreate(args []string) error {
	shape, err := parseInts(createShape)
	if err != nil {
		return err
	}
	if len(shape) == 0 {
		return fmt.Errorf("--shape is required")
	}
	chunks, err := parseInts(createChunks)
	if err != nil {
		return err
	}
	dt, err := ndmesh.ParseDtype(createDtype)
	if err != nil {
		return err
	}

	opts := ndmesh.SaveOptions{
		Dtype:              dt,
		Chunks:             chunks,
		Order:              createOrder,
		DimensionSeparator: createSeparator,
	}
	if createCompressor != "" {
		opts.Compressor = &ndmesh.CompressionMeta{ID: createCompressor}
	}

	s, err := openStore(args[0])
	if err != nil {
		return err
	}

	switch {
	case ndmesh.Holds[uint8](dt):
		err = createTyped[uint8](s, args[1], shape, opts)
	case ndmesh.Holds[int16](dt):
		err = createTyped[int16](s, args[1], shape, opts)
	case ndmesh.Holds[int32](dt):
		err = createTyped[int32](s, args[1], shape, opts)
	case ndmesh.Holds[int64](dt):
		err = createTyped[int64](s, args[1], shape, opts)
	case ndmesh.Holds[float32](dt):
		err = createTyped[float32](s, args[1], shape, opts)
	case ndmesh.Holds[float64](dt):
		err = createTyped[float64](s, args[1], shape, opts)
	default:
		return fmt.Errorf("unsupported dtype %s", dt)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[1], err)
	}
	printInfo("Created %s %v %s\n", args[1], shape, dt)
	return nil
}

func createTyped[E ndmesh.Number](s ndmesh.Store, path string, shape []int, opts ndmesh.SaveOptions) error {
	return guard(func() error {
		b := ndmesh.NewBlock[E](shape...)
		switch createFill {
		case "iota":
			idx, linear := rowMajorIndex(shape)
			b.Ref(idx...).Assign(linear)
		case "zero", "":
		default:
			v, err := strconv.ParseFloat(createFill, 64)
			if err != nil {
				return fmt.Errorf("invalid --fill %q: %w", createFill, err)
			}
			b.Fill(E(v))
		}
		_, err := ndmesh.Save[E](s, path, b, opts)
		return err
	})
}

// rowMajorIndex returns one iterator per dimension of shape and the
// expression for the row-major position they address.
func rowMajorIndex(shape []int) ([]interface{}, ndmesh.Expr) {
	idx := make([]interface{}, len(shape))
	var linear ndmesh.Expr = ndmesh.Lit(0)
	for d, n := range shape {
		it := ndmesh.NewIter(fmt.Sprintf("i%d", d))
		idx[d] = it
		linear = ndmesh.Add(ndmesh.Mul(linear, n), it)
	}
	return idx, linear
}
