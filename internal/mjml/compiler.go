// Package mjml compiles MJML markup to HTML through the mjml command line
// tool.
package mjml

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
	"github.com/conneroisu/mailwright/internal/validation"
)

// Compiler turns one MJML document into HTML.
type Compiler interface {
	Compile(ctx context.Context, source []byte) ([]byte, error)
}

var allowedCommands = map[string]bool{
	"mjml":     true,
	"mjml.cmd": true,
	"npx":      true,
}

// CLICompiler runs the mjml binary with the source on stdin and reads the
// HTML from stdout.
type CLICompiler struct {
	command string
	args    []string
	timeout time.Duration
}

// NewCLICompiler creates a compiler from the mjml configuration section.
func NewCLICompiler(cfg config.MJMLConfig) *CLICompiler {
	command := cfg.Command
	if command == "" {
		command = "mjml"
	}
	return &CLICompiler{
		command: command,
		args:    cfg.Args,
		timeout: cfg.Timeout,
	}
}

// Compile runs the configured command. Cancelling ctx kills the process.
func (c *CLICompiler) Compile(ctx context.Context, source []byte) ([]byte, error) {
	if err := c.validateCommand(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, fmt.Sprintf("mjml command rejected: %v", err))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, c.args...)
	cmd.Stdin = bytes.NewReader(source)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCompileError(errors.ErrCodeCompileFailed, "mjml timed out", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "mjml failed"
		}
		return nil, errors.NewCompileError(errors.ErrCodeCompileFailed, msg, err)
	}

	return stdout.Bytes(), nil
}

// Available reports whether the configured command can be found on PATH.
func (c *CLICompiler) Available() error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("%s command not found: %w. Install it with: npm install -g mjml", c.command, err)
	}
	return nil
}

func (c *CLICompiler) validateCommand() error {
	if err := validation.ValidateCommand(c.command, allowedCommands); err != nil {
		return err
	}
	for _, arg := range c.args {
		if err := validation.ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}

// CompileAll compiles every document matching ps.MJMLSource into the build
// output directory. Each output keeps its path relative to the MJML output
// root with an .html extension. The first failure aborts the run.
func CompileAll(ctx context.Context, compiler Compiler, ps paths.PathSet, logger logging.Logger) (int, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	sources, err := ps.MJMLSource.Match(doublestar.WithFilesOnly())
	if err != nil {
		return 0, errors.NewIOError(errors.ErrCodeGlobFailed, "glob mjml sources", err).WithPath(ps.MJMLSource.String())
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		raw, err := os.ReadFile(src)
		if err != nil {
			return 0, errors.NewIOError(errors.ErrCodeReadFailed, "read mjml source", err).WithPath(src)
		}

		html, err := compiler.Compile(ctx, raw)
		if err != nil {
			var perr *errors.Error
			if errors.As(err, &perr) {
				return 0, perr.WithPath(src)
			}
			return 0, errors.NewCompileError(errors.ErrCodeCompileFailed, "compile mjml", err).WithPath(src)
		}

		rel, err := filepath.Rel(ps.MJMLOutput, src)
		if err != nil {
			return 0, errors.NewInternalError(errors.ErrCodeInternalError, "relativise mjml path", err).WithPath(src)
		}
		dest := filepath.Join(ps.BuildOutput, strings.TrimSuffix(rel, filepath.Ext(rel))+".html")
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return 0, errors.NewIOError(errors.ErrCodeWriteFailed, "create output directory", err).WithPath(dest)
		}
		if err := os.WriteFile(dest, html, 0o644); err != nil {
			return 0, errors.NewIOError(errors.ErrCodeWriteFailed, "write compiled html", err).WithPath(dest)
		}
		logger.Debug(ctx, "Compiled mjml", "source", rel, "output", dest)
	}

	return len(sources), nil
}
