// Package app wires the engines into the two end-to-end flows run by the
// hdfs-crud command. Each flow is a fixed sequence of steps; a failing step
// is logged and recorded in the Summary and the flow moves on, except for
// steps marked fatal.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/Ratio1/hdfs_crud_go/internal/logging"
)

// ErrFatalStep is wrapped by the error a flow returns when a fatal step fails.
var ErrFatalStep = errors.New("app: fatal step failed")

// StepResult is the outcome of one flow step.
type StepResult struct {
	Name     string
	Err      error
	Fatal    bool
	Duration time.Duration
}

// Summary lists the steps a flow ran, in order.
type Summary struct {
	Flow  string
	Steps []StepResult
}

// OK reports whether every step succeeded.
func (s *Summary) OK() bool {
	return len(s.Failed()) == 0
}

// Failed returns the failed steps.
func (s *Summary) Failed() []StepResult {
	var out []StepResult
	for _, st := range s.Steps {
		if st.Err != nil {
			out = append(out, st)
		}
	}
	return out
}

// Step returns the result of the named step.
func (s *Summary) Step(name string) (StepResult, bool) {
	for _, st := range s.Steps {
		if st.Name == name {
			return st, true
		}
	}
	return StepResult{}, false
}

type runner struct {
	log     logging.Logger
	summary *Summary
}

func newRunner(flow string, log logging.Logger) *runner {
	return &runner{
		log:     logging.OrNop(log).With("flow", flow),
		summary: &Summary{Flow: flow},
	}
}

// run executes fn as step name and records the result. The returned error is
// only non-nil for failed fatal steps.
func (r *runner) run(ctx context.Context, name string, fatal bool, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	res := StepResult{Name: name, Err: err, Fatal: fatal, Duration: time.Since(start)}
	r.summary.Steps = append(r.summary.Steps, res)

	switch {
	case err == nil:
		r.log.Info(ctx, "step completed", "step", name, "duration", res.Duration.String())
		return nil
	case fatal:
		r.log.Error(ctx, "fatal step failed", "step", name, "err", err)
		return errors.Join(ErrFatalStep, err)
	default:
		r.log.Error(ctx, "step failed, continuing", "step", name, "err", err)
		return nil
	}
}
