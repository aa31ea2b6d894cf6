package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	c, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch c.Category() {
	case CategoryValidation:
		return 2
	case CategoryConfig:
		return 7
	case CategoryFrontMatter, CategoryTemplate, CategoryRender, CategoryResource, CategoryFeed:
		return 11
	case CategoryFileSystem:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for display on stderr.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	if !ok || a.verbose {
		return fmt.Sprintf("Error: %v", err)
	}
	if c.Cause() != nil {
		return fmt.Sprintf("Error: %s: %v", c.Message(), c.Cause())
	}
	return "Error: " + c.Message()
}

// Report logs err with its classification context and returns the exit code to use.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}
	attrs := []any{"error", err.Error(), "category", string(GetCategory(err))}
	if c, ok := AsClassified(err); ok {
		for k, v := range c.Context() {
			attrs = append(attrs, k, v)
		}
	}
	a.logger.Error("command failed", attrs...)
	return a.ExitCodeFor(err)
}
