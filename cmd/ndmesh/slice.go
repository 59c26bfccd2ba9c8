package main

import (
	"fmt"
	"strings"

	"github.com/qri-io/ndmesh"
	"github.com/spf13/cobra"
)

var (
	sliceRanges []string
	sliceOut    string
)

func init() {
	rootCmd.AddCommand(newSliceCmd())
}

func newSliceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slice <dir> <array>",
		Short: "Print or store a strided window of an array",
		Long: `The slice command selects one range per leading dimension, in
start:stop:step notation, and prints the selected values. Dimensions without
a range are kept whole. With --out the window is stored as a new array.

Example:
  ndmesh slice data.zarr grid --range 1:3 --range ::2
  ndmesh slice data.zarr grid --range 0 --out row0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlice(args)
		},
	}
	cmd.Flags().StringArrayVar(&sliceRanges, "range", nil, "Range for the next dimension (repeatable)")
	cmd.Flags().StringVar(&sliceOut, "out", "", "Store the window as this array instead of printing it")
	return cmd
}

func runSlice(args []string) error {
	ranges := make([]ndmesh.Range, len(sliceRanges))
	for i, r := range sliceRanges {
		var err error
		if ranges[i], err = ndmesh.ParseRange(r); err != nil {
			return err
		}
	}

	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	a, err := ndmesh.Open(s, args[1], ndmesh.ModeRead)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}
	m := a.Meta()
	printVerbose("Slicing %s %v by %v\n", args[1], m.Shape, sliceRanges)

	switch dt := m.Dtype; {
	case ndmesh.Holds[uint8](dt):
		return sliceTyped[uint8](s, a, ranges)
	case ndmesh.Holds[int16](dt):
		return sliceTyped[int16](s, a, ranges)
	case ndmesh.Holds[int32](dt):
		return sliceTyped[int32](s, a, ranges)
	case ndmesh.Holds[int64](dt):
		return sliceTyped[int64](s, a, ranges)
	case ndmesh.Holds[float32](dt):
		return sliceTyped[float32](s, a, ranges)
	case ndmesh.Holds[float64](dt):
		return sliceTyped[float64](s, a, ranges)
	default:
		return fmt.Errorf("unsupported dtype %s", dt)
	}
}

func sliceTyped[E ndmesh.Number](s ndmesh.Store, a *ndmesh.Array, ranges []ndmesh.Range) error {
	b, err := ndmesh.ReadBlock[E](a)
	if err != nil {
		return err
	}
	var win *ndmesh.View[E]
	if err := guard(func() error {
		win = b.Slice(ranges...)
		return nil
	}); err != nil {
		return err
	}

	if sliceOut != "" {
		m := a.Meta()
		_, err := ndmesh.Save[E](s, sliceOut, win, ndmesh.SaveOptions{
			Dtype:              m.Dtype,
			Order:              m.Order,
			Compressor:         m.Compressor,
			DimensionSeparator: m.DimensionSeparator,
			FillValue:          m.FillValue,
		})
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", sliceOut, err)
		}
		printInfo("Stored %s %v\n", sliceOut, win.Extents())
		return nil
	}
	return printValues(win)
}

// printValues prints a view as rows of its last dimension.
func printValues[E ndmesh.Number](v *ndmesh.View[E]) error {
	ext := v.Extents()
	vals := v.Values()
	if jsonOut {
		return printJSON(map[string]interface{}{"extents": ext, "values": vals})
	}

	width := ext[len(ext)-1]
	for i := 0; i < len(vals); i += width {
		row := make([]string, width)
		for j := range row {
			row[j] = fmt.Sprint(vals[i+j])
		}
		printInfo("%s\n", strings.Join(row, " "))
	}
	return nil
}
