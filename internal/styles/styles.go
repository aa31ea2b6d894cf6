// Package styles compiles the site's Sass stylesheets into the build directory.
package styles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/logfields"
)

// Dir is the site directory holding stylesheet sources.
const Dir = "sass"

// OutputDir is the build subdirectory compiled stylesheets are written to.
const OutputDir = "styles"

// SassBinaryEnv overrides the sass executable looked up on PATH.
const SassBinaryEnv = "WEBDOG_SASS"

// ErrSassNotFound is returned when no sass executable is available.
var ErrSassNotFound = errors.New("sass executable not found")

// CompileFunc turns one stylesheet into CSS.
type CompileFunc func(ctx context.Context, path string) (string, error)

// Compiler writes compiled stylesheets to <build>/styles.
type Compiler struct {
	SourceDir string
	BuildDir  string
	// Serving empties the output directory first and skips minification.
	Serving bool
	// Compile defaults to ExecSass.
	Compile CompileFunc
}

// Build compiles every sheet. A sheet that fails to compile is logged and
// skipped; only output directory and write failures are returned.
func (c *Compiler) Build(ctx context.Context, sheets []string) (built int, err error) {
	outDir := filepath.Join(c.BuildDir, OutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, ferrors.FileSystemError("failed to create styles directory").WithCause(err).WithContext("path", outDir).Build()
	}
	if c.Serving {
		if err := clearDir(outDir); err != nil {
			return 0, ferrors.FileSystemError("failed to remove old contents of styles directory").WithCause(err).WithContext("path", outDir).Build()
		}
	}

	compile := c.Compile
	if compile == nil {
		compile = ExecSass
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)

	for _, sheet := range sheets {
		src := filepath.Join(c.SourceDir, filepath.FromSlash(sheet))
		out, err := compile(ctx, src)
		if err != nil {
			slog.Error("Failed to compile stylesheet", logfields.Path(src), logfields.Error(err))
			continue
		}
		if !c.Serving {
			if out, err = m.String("text/css", out); err != nil {
				slog.Error("Failed to minify stylesheet", logfields.Path(src), logfields.Error(err))
				continue
			}
		}
		dst := filepath.Join(outDir, strings.TrimSuffix(filepath.FromSlash(sheet), filepath.Ext(sheet))+".css")
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return built, ferrors.FileSystemError("failed to create styles directory").WithCause(err).WithContext("path", dst).Build()
		}
		if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
			return built, ferrors.FileSystemError("failed to write compiled stylesheet").WithCause(err).WithContext("path", dst).Build()
		}
		built++
	}
	return built, nil
}

// ExecSass runs the sass executable on path. Plain .css files are read as is.
func ExecSass(ctx context.Context, path string) (string, error) {
	if filepath.Ext(path) == ".css" {
		data, err := os.ReadFile(path) // #nosec G304 -- stylesheet path comes from site config
		return string(data), err
	}
	bin := os.Getenv(SassBinaryEnv)
	if bin == "" {
		bin = "sass"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSassNotFound, bin)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, resolved, "--no-source-map", path) // #nosec G204 -- binary resolved from PATH or explicit env override
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sass command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
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
