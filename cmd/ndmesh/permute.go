package main

import (
	"fmt"

	"github.com/qri-io/ndmesh"
	"github.com/spf13/cobra"
)

var permuteOrder string

func init() {
	rootCmd.AddCommand(newPermuteCmd())
}

func newPermuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permute <dir> <src> <dst>",
		Short: "Store an array with its dimensions reordered",
		Long: `The permute command reads <src>, reorders its dimensions so that
dimension d of <dst> is dimension order[d] of <src>, and stores the result.
Chunk shapes are permuted along with the data.

Example:
  ndmesh permute data.zarr grid grid_t --order 1,0`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPermute(args)
		},
	}
	cmd.Flags().StringVar(&permuteOrder, "order", "", "Comma separated dimension order (required)")
	return cmd
}

func runPermute(args []string) error {
	order, err := parseInts(permuteOrder)
	if err != nil {
		return err
	}
	if len(order) == 0 {
		return fmt.Errorf("--order is required")
	}

	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	a, err := ndmesh.Open(s, args[1], ndmesh.ModeRead)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}

	switch dt := a.Meta().Dtype; {
	case ndmesh.Holds[uint8](dt):
		err = permuteTyped[uint8](s, a, args[2], order)
	case ndmesh.Holds[int16](dt):
		err = permuteTyped[int16](s, a, args[2], order)
	case ndmesh.Holds[int32](dt):
		err = permuteTyped[int32](s, a, args[2], order)
	case ndmesh.Holds[int64](dt):
		err = permuteTyped[int64](s, a, args[2], order)
	case ndmesh.Holds[float32](dt):
		err = permuteTyped[float32](s, a, args[2], order)
	case ndmesh.Holds[float64](dt):
		err = permuteTyped[float64](s, a, args[2], order)
	default:
		return fmt.Errorf("unsupported dtype %s", dt)
	}
	if err != nil {
		return err
	}
	printInfo("Stored %s\n", args[2])
	return nil
}

func permuteTyped[E ndmesh.Number](s ndmesh.Store, a *ndmesh.Array, dst string, order []int) error {
	b, err := ndmesh.ReadBlock[E](a)
	if err != nil {
		return err
	}
	m := a.Meta()
	return guard(func() error {
		v := b.Permute(order...)
		chunks := ndmesh.NewSpace(m.Chunks...).Permute(order...).Extents()
		printVerbose("Permuted %v to %v\n", m.Shape, v.Extents())
		_, err := ndmesh.Save[E](s, dst, v, ndmesh.SaveOptions{
			Chunks:             chunks,
			Dtype:              m.Dtype,
			Order:              m.Order,
			Compressor:         m.Compressor,
			DimensionSeparator: m.DimensionSeparator,
			FillValue:          m.FillValue,
		})
		return err
	})
}
