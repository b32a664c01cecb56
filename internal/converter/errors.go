package converter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedConversion is returned when a variant does not accept the format pair.
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	// ErrInputNotFound signals that the input file is absent.
	ErrInputNotFound = errors.New("input file not found")
	// ErrToolNotFound signals that the converter executable is not installed.
	ErrToolNotFound = errors.New("converter tool not found")
	// ErrToolFailed is wrapped by ExecError when the tool exits nonzero.
	ErrToolFailed = errors.New("converter tool failed")
	// ErrNoOutput is wrapped by ExecError when the tool succeeded but produced nothing recognizable.
	ErrNoOutput = errors.New("converter produced no output")
)

// ExecError carries the diagnostics of a failed tool run.
type ExecError struct {
	Tool        string
	Command     []string
	Stdout      string
	Stderr      string
	DirContents []string
	Err         error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Tool, e.Err)
	if e.DirContents != nil {
		fmt.Fprintf(&b, "; output directory contains [%s]", strings.Join(e.DirContents, ", "))
	}
	fmt.Fprintf(&b, "; command: %s", strings.Join(e.Command, " "))
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "; stderr: %s", s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, "; stdout: %s", s)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
