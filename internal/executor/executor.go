// Package executor runs an expanded design load case list over a
// bounded worker pool, one workdir per case. Transient failures retry
// with exponential backoff; fatal failures and an exhausted retry
// budget end the case. The failure policy decides whether one lost
// case stops the whole campaign.
package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/logging"
	"github.com/windco-project/windco/internal/simulation"
	"github.com/windco-project/windco/pkg/windio"
)

// Campaign executes cases against one simulation backend.
type Campaign struct {
	fs       afero.Fs
	sim      simulation.Simulator
	workers  int
	retries  int
	failFast bool

	// OnStart, when set, sees every case as its first attempt begins.
	OnStart func(dlc.Case)
	// Observer, when set, sees every terminal outcome as it lands.
	Observer func(Outcome)

	newBackOff func() backoff.BackOff
}

// New builds a campaign from the execution options. A zero worker
// count selects one worker per CPU.
func New(fs afero.Fs, sim simulation.Simulator, opts windio.ExecutionOptions) *Campaign {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Campaign{
		fs:       fs,
		sim:      sim,
		workers:  workers,
		retries:  opts.RetryCount(),
		failFast: opts.OnFailure == windio.OnFailureFailFast,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Run executes every case and returns the final board. Case workdirs
// live under runDir as cases/<case-id>. The error is non-nil when any
// case failed or the context was canceled, and names every failed
// case.
func (cp *Campaign) Run(ctx context.Context, runDir string, cases []dlc.Case) (*Board, error) {
	log := logging.FromContext(ctx)
	board := newBoard(cases)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cp.workers)
	for _, c := range cases {
		g.Go(func() error {
			o := cp.runCase(gctx, runDir, c)
			board.record(o)
			if cp.Observer != nil {
				cp.Observer(o)
			}
			switch o.Status {
			case StatusFailed:
				log.Error(o.Err, "case failed", "case", c.ID, "attempts", o.Attempts)
				if cp.failFast {
					return fmt.Errorf("case %s: %w", c.ID, o.Err)
				}
			case StatusSkipped:
				log.V(logging.DEBUG).Info("case skipped", "case", c.ID)
			default:
				log.V(logging.DEBUG).Info("case complete",
					"case", c.ID, "backend", cp.sim.Name(), "attempts", o.Attempts)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	succeeded, failed, skipped := board.Counts()
	log.Info("campaign finished", "cases", len(cases),
		"succeeded", succeeded, "failed", failed, "skipped", skipped)

	if failed > 0 {
		ids := make([]string, 0, failed)
		for _, o := range board.Failed() {
			ids = append(ids, o.Case.ID)
		}
		return board, fmt.Errorf("%d of %d cases failed: %s",
			failed, len(cases), strings.Join(ids, ", "))
	}
	if err := ctx.Err(); err != nil {
		return board, err
	}
	return board, waitErr
}

// runCase takes one case to a terminal state. Cancellation before or
// during the case records a skip, not a failure.
func (cp *Campaign) runCase(ctx context.Context, runDir string, c dlc.Case) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Case: c, Status: StatusSkipped, Err: err}
	}
	workdir := filepath.Join(runDir, "cases", c.ID)
	if err := cp.fs.MkdirAll(workdir, 0o755); err != nil {
		return Outcome{Case: c, Status: StatusFailed, Err: fmt.Errorf("case workdir: %w", err)}
	}

	if cp.OnStart != nil {
		cp.OnStart(c)
	}
	start := time.Now()
	attempts := 0
	op := func() (*simulation.Result, error) {
		attempts++
		res, err := cp.sim.Run(ctx, c, workdir)
		if err != nil && simulation.IsFatal(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}
	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(cp.newBackOff()),
		backoff.WithMaxTries(uint(cp.retries+1)),
	)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		return Outcome{Case: c, Status: StatusSucceeded, Attempts: attempts, Duration: elapsed, Result: res}
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return Outcome{Case: c, Status: StatusSkipped, Attempts: attempts, Duration: elapsed, Err: ctx.Err()}
	default:
		return Outcome{Case: c, Status: StatusFailed, Attempts: attempts, Duration: elapsed, Err: err}
	}
}
