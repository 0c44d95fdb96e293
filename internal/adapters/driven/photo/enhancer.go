package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/lenscore/internal/core/domain"
	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
	"github.com/custodia-labs/lenscore/internal/logger"
)

// Ensure CommandEnhancer implements the interface.
var _ driven.ImageEnhancer = (*CommandEnhancer)(nil)

// Flags passed to the enhancer for each toggle.
const (
	FlagBrightness   = "--brightness"
	FlagContrast     = "--contrast"
	FlagColorBalance = "--color-balance"
	FlagSharpness    = "--sharpness"
)

// Runner executes a command with the given stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name. Stderr is included in the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
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

// CommandEnhancer pipes the image through an external command.
type CommandEnhancer struct {
	command string
	args    []string
	runner  Runner
}

// NewCommandEnhancer creates an enhancer for command with fixed leading args.
// A nil runner uses ExecRunner.
func NewCommandEnhancer(command string, args []string, runner Runner) *CommandEnhancer {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CommandEnhancer{command: command, args: args, runner: runner}
}

// Enhance runs the command with one flag per enabled toggle.
func (e *CommandEnhancer) Enhance(ctx context.Context, image []byte, toggles domain.EnhancementToggles) ([]byte, error) {
	if e.command == "" {
		return nil, domain.ErrEnhancerUnavailable
	}
	args := append(append([]string(nil), e.args...), Flags(toggles)...)
	logger.Debug("Running enhancer: %s %s", e.command, strings.Join(args, " "))

	out, err := e.runner.Run(ctx, e.command, args, image)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", domain.ErrEnhancerUnavailable, e.command)
		}
		return nil, fmt.Errorf("enhancer %s: %w", e.command, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("enhancer %s: %w", e.command, domain.ErrEmptyContent)
	}
	return out, nil
}

// Flags returns the command-line flags for the enabled toggles.
func Flags(t domain.EnhancementToggles) []string {
	var flags []string
	if t.Brightness {
		flags = append(flags, FlagBrightness)
	}
	if t.Contrast {
		flags = append(flags, FlagContrast)
	}
	if t.ColorBalance {
		flags = append(flags, FlagColorBalance)
	}
	if t.Sharpness {
		flags = append(flags, FlagSharpness)
	}
	return flags
}
