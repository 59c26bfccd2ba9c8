package main

import (
	"fmt"

	"github.com/qri-io/ndmesh"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <dir> <array>",
		Short: "Report an array's metadata",
		Long: `The info command reads the .zarray document of an array and prints
its dtype, shape, chunking, layout and compressor.

Example:
  ndmesh info data.zarr plane
  ndmesh info data.zarr plane --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	a, err := ndmesh.Open(s, args[1], ndmesh.ModeRead)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[1], err)
	}

	if jsonOut {
		return printJSON(a.Meta())
	}
	printInfo("%s", a.Info())
	return nil
}
