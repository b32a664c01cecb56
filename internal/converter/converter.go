package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Job binds a converter to one input file and one output directory.
type Job struct {
	InputPath    string
	OutputDir    string
	InputFormat  string
	OutputFormat string
}

// Converter runs one variant against one job. It is not reused across jobs.
type Converter struct {
	variant  Variant
	job      Job
	runner   Runner
	lookPath func(string) (string, error)
	timeout  time.Duration
	logger   *zap.Logger
}

// Option customizes a Converter.
type Option func(*Converter)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(c *Converter) { c.runner = r }
}

// WithLookPath replaces executable discovery.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Converter) { c.lookPath = fn }
}

// WithTimeout bounds a single tool invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) { c.timeout = d }
}

// WithLogger sets the logger used for tool invocations.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New binds variant to job.
func New(variant Variant, job Job, opts ...Option) *Converter {
	c := &Converter{
		variant:  variant,
		job:      job,
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert produces {OutputDir}/{input stem}.{output format} and returns its path.
// With overwrite false an existing output is returned without running the tool;
// with overwrite true it is removed first.
func (c *Converter) Convert(ctx context.Context, overwrite bool, quality string) ([]string, error) {
	in, out := Normalize(c.job.InputFormat), Normalize(c.job.OutputFormat)
	if !c.variant.CanConvert(in, out) {
		return nil, fmt.Errorf("%w: %s cannot convert %s to %s", ErrUnsupportedConversion, c.variant.Kind, in, out)
	}

	if _, err := os.Stat(c.job.InputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, c.job.InputPath)
		}
		return nil, fmt.Errorf("stat input %s: %w", c.job.InputPath, err)
	}

	tool, err := c.lookPath(c.variant.Tool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrToolNotFound, c.variant.Tool, err)
	}

	stem := strings.TrimSuffix(filepath.Base(c.job.InputPath), filepath.Ext(c.job.InputPath))
	target := filepath.Join(c.job.OutputDir, stem+"."+out)

	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			c.logger.Debug("output exists, skipping conversion", zap.String("path", target))
			return []string{target}, nil
		}
	} else if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale output %s: %w", target, err)
	}

	if err := os.MkdirAll(c.job.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", c.job.OutputDir, err)
	}

	args := c.variant.args(c.job.InputPath, c.job.OutputDir, target, out, quality)
	command := append([]string{tool}, args...)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info("running converter", zap.Stringer("kind", c.variant.Kind), zap.Strings("command", command))
	stdout, stderr, err := c.runner.Run(runCtx, tool, args...)
	if err != nil {
		return nil, &ExecError{
			Tool:    c.variant.Tool,
			Command: command,
			Stdout:  string(stdout),
			Stderr:  string(stderr),
			Err:     fmt.Errorf("%w: %v", ErrToolFailed, err),
		}
	}

	produced, err := findOutput(c.job.OutputDir, c.variant.patterns(globEscaper.Replace(stem), out))
	if err != nil {
		return nil, err
	}
	if produced == "" {
		return nil, &ExecError{
			Tool:        c.variant.Tool,
			Command:     command,
			Stdout:      string(stdout),
			Stderr:      string(stderr),
			DirContents: listDir(c.job.OutputDir),
			Err:         ErrNoOutput,
		}
	}

	if produced != target {
		if err := os.Rename(produced, target); err != nil {
			return nil, fmt.Errorf("rename %s to %s: %w", produced, target, err)
		}
	}
	return []string{target}, nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)

// findOutput returns the first file matching the patterns, tried in order.
func findOutput(dir string, patterns []string) (string, error) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", fmt.Errorf("scan output for %s: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				return m, nil
			}
		}
	}
	return "", nil
}

func listDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
