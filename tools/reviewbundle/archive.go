package reviewbundle

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ListMembers returns the member names of a gzip-compressed tar archive in
// archive order.
func ListMembers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	return ReadMembers(f)
}

// ReadMembers lists the member names of a tar.gz stream.
func ReadMembers(r io.Reader) ([]string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read gzip header: %w", err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}

// MembersContaining returns the names that contain substr, keeping order.
func MembersContaining(names []string, substr string) []string {
	out := []string{}
	for _, n := range names {
		if strings.Contains(n, substr) {
			out = append(out, n)
		}
	}
	return out
}
