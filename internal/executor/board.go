package executor

import (
	"sync"
	"time"

	"github.com/windco-project/windco/internal/dlc"
	"github.com/windco-project/windco/internal/simulation"
)

// Status is the terminal state of one campaign case.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome records how one case ended.
type Outcome struct {
	Case     dlc.Case
	Status   Status
	Attempts int
	// Duration spans every attempt, including backoff waits. Cases
	// skipped before their first attempt report zero.
	Duration time.Duration
	// Result is set only for succeeded cases.
	Result *simulation.Result
	// Err is set for failed and skipped cases.
	Err error
}

// Board tracks per-case terminal states while a campaign runs. It is
// safe for concurrent use; a case that reached a terminal state never
// leaves it.
type Board struct {
	mu       sync.Mutex
	order    []string
	outcomes map[string]Outcome
}

func newBoard(cases []dlc.Case) *Board {
	b := &Board{
		order:    make([]string, 0, len(cases)),
		outcomes: make(map[string]Outcome, len(cases)),
	}
	for _, c := range cases {
		b.order = append(b.order, c.ID)
	}
	return b
}

// record stores a terminal state. The first record for a case wins.
func (b *Board) record(o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, done := b.outcomes[o.Case.ID]; done {
		return
	}
	b.outcomes[o.Case.ID] = o
}

// Outcomes returns the recorded terminal states in campaign order.
func (b *Board) Outcomes() []Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Outcome, 0, len(b.outcomes))
	for _, id := range b.order {
		if o, ok := b.outcomes[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Results returns the output of every succeeded case in campaign order.
func (b *Board) Results() []*simulation.Result {
	var out []*simulation.Result
	for _, o := range b.Outcomes() {
		if o.Status == StatusSucceeded {
			out = append(out, o.Result)
		}
	}
	return out
}

// Failed returns the failed cases in campaign order.
func (b *Board) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes() {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Counts reports how many cases ended in each terminal state.
func (b *Board) Counts() (succeeded, failed, skipped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.outcomes {
		switch o.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}
