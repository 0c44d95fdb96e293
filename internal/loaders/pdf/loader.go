// Package pdf loads PDF reference books through poppler's pdftotext.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/normalisers/plaintext"
)

// Ensure Loader implements the interface.
var _ driven.SourceLoader = (*Loader)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command, returning stderr in the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Loader extracts the text layer of PDF files.
type Loader struct {
	runner CommandRunner
}

// New creates a loader that runs the installed poppler tools.
func New() *Loader {
	return &Loader{runner: ExecRunner{}}
}

// NewWithRunner creates a loader with a custom command runner.
func NewWithRunner(runner CommandRunner) *Loader {
	return &Loader{runner: runner}
}

// SourceTypes returns the source types this loader handles.
func (l *Loader) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypePDF}
}

// Load extracts the text of every page in reading order.
func (l *Loader) Load(ctx context.Context, source domain.SourceDescriptor) (*domain.Document, error) {
	info, err := os.Stat(source.Origin)
	if err != nil {
		return nil, domain.NewIngestionError(source, err)
	}
	if info.IsDir() {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: is a directory", domain.ErrInvalidInput))
	}

	out, err := l.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", source.Origin, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, domain.NewIngestionError(source, fmt.Errorf("%w (%s)", err, InstallInstructions()))
		}
		return nil, domain.NewIngestionError(source, fmt.Errorf("pdftotext failed: %w", err))
	}

	// Pages are separated by form feeds.
	content := plaintext.Clean(strings.ReplaceAll(string(out), "\f", "\n\n"))
	if content == "" {
		return nil, domain.NewIngestionError(source, fmt.Errorf("%w: no text layer (scanned PDF?)", domain.ErrEmptyContent))
	}

	title := l.title(ctx, source.Origin)
	doc := domain.NewDocument(source, title, content)
	doc.Metadata["format"] = "pdf"
	doc.Metadata["pages"] = strings.Count(string(out), "\f")
	return &doc, nil
}

// title reads the document title with pdfinfo, falling back to the file name.
func (l *Loader) title(ctx context.Context, path string) string {
	out, err := l.runner.Run(ctx, "pdfinfo", "-enc", "UTF-8", path)
	if err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(out))
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "Title:") {
				if title := strings.TrimSpace(strings.TrimPrefix(line, "Title:")); title != "" {
					return title
				}
			}
		}
	}
	return plaintext.TitleFromPath(path)
}

// InstallInstructions returns how to install pdftotext on this platform.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "install with: brew install poppler"
	case "windows":
		return "install poppler and add its bin directory to PATH"
	default:
		return "install with: apt install poppler-utils (or your distribution's poppler package)"
	}
}
