package site

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// CopyStatic mirrors one file from the static root into the build directory.
func (b *Builder) CopyStatic(path string) error {
	dst, err := b.staticOutput(path)
	if err != nil {
		return err
	}
	if err := copyFile(path, dst); err != nil {
		return ferrors.FileSystemError("failed to copy static file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

// RemoveStatic deletes the mirrored output of a static root file.
func (b *Builder) RemoveStatic(path string) error {
	dst, err := b.staticOutput(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to remove static file").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}

func (b *Builder) staticOutput(path string) (string, error) {
	rel, err := filepath.Rel(filepath.Join(b.sitePath, RootDir), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ferrors.InternalError("path is outside the static root").WithContext("path", path).Build()
	}
	return filepath.Join(b.buildDir, rel), nil
}

// resetDir empties dir, creating it when missing.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies every file under src into dst. A missing src copies nothing.
func copyTree(src, dst string) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == src {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if err := copyFile(path, filepath.Join(dst, rel)); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, ferrors.FileSystemError("failed to copy static root").WithCause(err).WithContext("path", src).Build()
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- source files live under the site directory
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst) // #nosec G304 -- destination is inside the build directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
