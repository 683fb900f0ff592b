// Package ingest loads reference loops and frame recordings from disk.
//
// Supported inputs:
//   - reference path: JSON {"points": [[x, y], ...]}, CSV "x,y" rows, or a
//     FIT activity file (first lap, projected to a local plane)
//   - frames: CSV "frame,x,y,lap_boundary" rows, or a FIT activity file
//     whose lap messages supply the lap-boundary signal
//
// Loaders only parse and validate shape; they never build a ClosedPath.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/lapalign/internal/fsutil"
)

var (
	// ErrUnsupportedFormat is returned for a file extension no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrMalformedInput is returned when a file parses but its contents
	// are not a valid path or recording.
	ErrMalformedInput = errors.New("malformed input")
)

const (
	maxPathFileSize   = 16 * 1024 * 1024  // 16MB
	maxFramesFileSize = 512 * 1024 * 1024 // 512MB
)

// readLimited reads name after checking it exists and is at most limit bytes.
func readLimited(fsys fsutil.FileSystem, name string, limit int64) ([]byte, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s too large: %d bytes (max %d)", name, info.Size(), limit)
	}
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
