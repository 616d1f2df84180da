package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NormalizePath folds ".." components without touching the filesystem.
// Leading ".." that cannot be folded are kept. The result uses forward
// slashes so atlas keys are identical on every platform.
func NormalizePath(path string) string {
	path = filepath.ToSlash(path)
	absolute := strings.HasPrefix(path, "/")

	var out []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute {
				out = append(out, part)
			}
		default:
			out = append(out, part)
		}
	}

	joined := strings.Join(out, "/")
	if absolute {
		return "/" + joined
	}
	return joined
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDirIfNotExist creates a directory if it doesn't exist
func CreateDirIfNotExist(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// FrameTimer keeps a rolling average of frame durations.
type FrameTimer struct {
	samples []time.Duration
	next    int
	filled  bool
}

// NewFrameTimer creates a timer averaging over the last window frames
func NewFrameTimer(window int) *FrameTimer {
	if window < 1 {
		window = 1
	}
	return &FrameTimer{samples: make([]time.Duration, window)}
}

// Add records one frame duration
func (ft *FrameTimer) Add(d time.Duration) {
	ft.samples[ft.next] = d
	ft.next++
	if ft.next == len(ft.samples) {
		ft.next = 0
		ft.filled = true
	}
}

// Average returns the mean of the recorded durations
func (ft *FrameTimer) Average() time.Duration {
	n := ft.next
	if ft.filled {
		n = len(ft.samples)
	}
	if n == 0 {
		return 0
	}

	var total time.Duration
	for _, s := range ft.samples[:n] {
		total += s
	}
	return total / time.Duration(n)
}

// Full reports whether a whole window of samples has been recorded
func (ft *FrameTimer) Full() bool {
	return ft.filled
}
