package log

import (
	"fmt"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/ethermirror/internal/config"
)

// fileAppender writes JSON lines to the per-process log file and rotates it
// by size.
type fileAppender struct {
	*lumberjack.Logger
}

// newFileAppender creates (or truncates) path up front so an unwritable
// location fails at startup rather than on the first entry.
func newFileAppender(path string, rotation config.RotationConfig) (*fileAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	return &fileAppender{Logger: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSizeMB,  // megabytes
		MaxBackups: rotation.MaxBackups, // number of backups
		MaxAge:     rotation.MaxAgeDays, // days
		Compress:   rotation.Compress,   // compress the backups
	}}, nil
}
