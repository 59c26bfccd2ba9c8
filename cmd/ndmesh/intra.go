package main

import (
	"fmt"

	"github.com/qri-io/ndmesh"
	"github.com/qri-io/ndmesh/intra"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newIntraCmd())
}

func newIntraCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intra <dir> <recon> <orig>",
		Short: "Choose 16x16 intra-prediction modes for a luma plane",
		Long: `The intra command loads two |u1 planes, the reconstructed picture
used for prediction and the original being coded, and reports the cheapest
16x16 prediction mode of every macroblock by sum of absolute differences.

Example:
  ndmesh intra data.zarr recon orig
  ndmesh intra data.zarr recon orig --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntra(args)
		},
	}
	return cmd
}

type mbDecision struct {
	Y    int    `json:"y"`
	X    int    `json:"x"`
	Mode string `json:"mode"`
	Cost int    `json:"cost"`
}

func runIntra(args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	recon, err := ndmesh.Load[uint8](s, args[1])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[1], err)
	}
	orig, err := ndmesh.Load[uint8](s, args[2])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[2], err)
	}

	var grid [][]intra.Decision
	if err := guard(func() error {
		grid, err = intra.SearchAll(recon, orig)
		return err
	}); err != nil {
		return err
	}

	var out []mbDecision
	total := 0
	for y, row := range grid {
		for x, d := range row {
			out = append(out, mbDecision{Y: y, X: x, Mode: d.Mode.String(), Cost: d.Cost})
			total += d.Cost
		}
	}
	if jsonOut {
		return printJSON(map[string]interface{}{"macroblocks": out, "total": total})
	}
	for _, d := range out {
		printInfo("mb(%d,%d) %-10s %d\n", d.Y, d.X, d.Mode, d.Cost)
	}
	printInfo("total %d\n", total)
	return nil
}
