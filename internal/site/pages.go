package site

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// PageIndex maps page ids (slash separated, extension stripped) to source paths.
type PageIndex map[string]string

// ScanPages walks dir for markdown files. A missing directory is an empty index.
func ScanPages(dir string) (PageIndex, error) {
	index := PageIndex{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if id, ok := PageID(dir, path); ok {
			index[id] = path
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError("failed to scan pages").WithCause(err).WithContext("path", dir).Build()
	}
	return index, nil
}

// PageID returns the id of the page at path under pagesDir.
func PageID(pagesDir, path string) (string, bool) {
	if filepath.Ext(path) != PageExt {
		return "", false
	}
	rel, err := filepath.Rel(pagesDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, PageExt)), true
}

// IDs returns the page ids in sorted order.
func (p PageIndex) IDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
