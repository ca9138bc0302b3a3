// Package simulation defines the contract between the campaign executor
// and the case backends. The reduced-order model and the external
// OpenFAST toolchain both run expanded cases into per-case workdirs and
// hand back channel tables.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os/exec"
	"strings"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/output"
)

// Result is the outcome of one simulated case.
type Result struct {
	CaseID     string
	Backend    string
	OutputPath string
	Series     *output.TimeSeries
}

// Simulator runs one expanded case inside its workdir.
type Simulator interface {
	Name() string
	Run(ctx context.Context, c dlc.Case, workdir string) (*Result, error)
}

// FatalError marks a failure retrying cannot fix: rejected decks,
// missing binaries, unreadable output.
type FatalError struct{ Err error }

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps an error as non-retryable. A nil error stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Fatalf builds a non-retryable error.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether the chain contains a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// CommandRunner abstracts child process execution so the adapters are
// testable without the real binaries installed.
type CommandRunner interface {
	// Run executes name with args inside dir and returns the combined
	// output. The child is killed when ctx ends.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner is the os/exec CommandRunner.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Solver output markers of input rejection. A run failing with one of
// these will fail identically on every retry.
var fatalMarkers = []string{
	"invalid input",
	"error reading",
	"could not parse",
	"unknown keyword",
}

// ClassifyRunError sorts a child process failure into retryable and
// fatal. Context cancellation passes through untouched, missing
// binaries and rejected input become fatal, everything else is left
// retryable.
func ClassifyRunError(err error, out []byte, binary string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return Fatal(fmt.Errorf("%s is not runnable, configure the executable in the modeling options: %w", binary, err))
	}
	if lower := strings.ToLower(string(out)); containsAny(lower, fatalMarkers) {
		return Fatal(fmt.Errorf("%s rejected its input (%s): %w", binary, tail(out), err))
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return fmt.Errorf("%s exited with code %d: %s", binary, ee.ExitCode(), tail(out))
	}
	return fmt.Errorf("%s: %w", binary, err)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// tail trims solver output to its informative end.
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) <= 200 {
		return s
	}
	return "... " + s[len(s)-200:]
}

// GustLead separates the coherent gust onset from the discarded
// transient, so the ramp is never trimmed away.
const GustLead = 10.0 // s

// GustAt evaluates the extreme coherent gust rise at time t: zero
// before the onset, a half-cosine ramp over the rise time, the full
// amplitude after. Both backends sample the same shape.
func GustAt(amplitude, onset, rise, t float64) float64 {
	switch {
	case t <= onset:
		return 0
	case t >= onset+rise:
		return amplitude
	default:
		return amplitude / 2 * (1 - math.Cos(math.Pi*(t-onset)/rise))
	}
}
