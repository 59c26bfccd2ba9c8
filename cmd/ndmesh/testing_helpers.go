package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

// resetFlags restores every command flag to its default.
func resetFlags() {
	verbose, quiet, jsonOut = false, false, false
	createShape, createDtype, createChunks = "", "<i4", ""
	createOrder, createCompressor, createFill, createSeparator = "C", "", "iota", "."
	sliceRanges, sliceOut = nil, ""
	permuteOrder = ""
}

// mustCreate runs the create command with the given flag values.
func mustCreate(t *testing.T, dir, name, shape, dtype string, configure func()) {
	t.Helper()
	resetFlags()
	createShape, createDtype = shape, dtype
	if configure != nil {
		configure()
	}
	_, err := captureOutput(t, func() error { return runCreate([]string{dir, name}) })
	require.NoError(t, err)
	resetFlags()
}
