package ritual

import (
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// FileInfo is a candidate file and the modification time used to rank it.
type FileInfo struct {
	Path    string
	ModTime time.Time
}

// Snapshot lists the regular files in fsys matching pattern together with
// their modification times. Files that vanish between glob and stat are
// dropped. The result is in lexical order.
func Snapshot(fsys fs.FS, pattern string) ([]FileInfo, error) {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	files := make([]FileInfo, 0, len(matches))
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{Path: m, ModTime: info.ModTime()})
	}
	return files, nil
}

// NewestFirst returns a copy of files ordered by modification time, most
// recent first. Equal times keep their input order.
func NewestFirst(files []FileInfo) []FileInfo {
	out := make([]FileInfo, len(files))
	copy(out, files)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out
}

// Limit returns at most n leading files.
func Limit(files []FileInfo, n int) []FileInfo {
	if n >= 0 && len(files) > n {
		return files[:n]
	}
	return files
}

// SelectLatest returns the most recently modified file satisfying pred. On
// equal times the earlier file in the input wins.
func SelectLatest(files []FileInfo, pred func(FileInfo) bool) (FileInfo, bool) {
	var (
		best  FileInfo
		found bool
	)
	for _, f := range files {
		if pred != nil && !pred(f) {
			continue
		}
		if !found || f.ModTime.After(best.ModTime) {
			best = f
			found = true
		}
	}
	return best, found
}

// MatchName builds a predicate matching a file's path against a glob pattern.
func MatchName(pattern string) func(FileInfo) bool {
	return func(f FileInfo) bool {
		ok, err := doublestar.Match(pattern, f.Path)
		return err == nil && ok
	}
}
