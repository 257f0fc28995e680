package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the process-wide JSON logger on stderr. LOG_LEVEL accepts
// debug, info, warn or error; anything else means info.
func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

func New(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
}
