package ndmesh

import (
	"io"
	"log/slog"
)

// L is the package logger. It discards all output until SetLogger is called.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger replaces the package logger. A nil logger restores the discarding default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	L = l
}
