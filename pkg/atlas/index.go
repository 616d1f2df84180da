package atlas

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"crtpipe/internal/util"
)

// LoadIndex reads an index file. Keys are resolved relative to the
// directory holding the index.
func LoadIndex(indexPath string) (map[string]Rect, error) {
	file, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open texture atlas index %s: %w", indexPath, err)
	}
	defer file.Close()

	return ParseIndex(file, filepath.ToSlash(filepath.Dir(indexPath)))
}

// ParseIndex parses "x,y,w,h,path" lines. Blank lines are skipped.
func ParseIndex(r io.Reader, base string) (map[string]Rect, error) {
	index := make(map[string]Rect)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// the path is last and may itself contain commas
		parts := strings.SplitN(line, ",", 5)
		if len(parts) != 5 {
			return nil, fmt.Errorf("invalid texture atlas index entry on line %d: %q", lineNo, line)
		}

		var nums [4]int
		for i := 0; i < 4; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil {
				return nil, fmt.Errorf("invalid texture atlas index entry on line %d: %w", lineNo, err)
			}
			nums[i] = n
		}

		name := strings.TrimSpace(parts[4])
		if name == "" {
			return nil, fmt.Errorf("invalid texture atlas index entry on line %d: empty path", lineNo)
		}

		key := util.NormalizePath(path.Join(base, name))
		index[key] = Rect{X: nums[0], Y: nums[1], W: nums[2], H: nums[3]}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading texture atlas index: %w", err)
	}

	return index, nil
}

// WriteIndex writes entries in the format ParseIndex reads, sorted by key.
// Keys are written relative to base.
func WriteIndex(w io.Writer, a *Atlas, base string) error {
	prefix := util.NormalizePath(base)
	if prefix != "" {
		prefix += "/"
	}

	for _, key := range a.Keys() {
		r := a.index[key]
		name := strings.TrimPrefix(key, prefix)
		if _, err := fmt.Fprintf(w, "%d,%d,%d,%d,%s\n", r.X, r.Y, r.W, r.H, name); err != nil {
			return err
		}
	}
	return nil
}
