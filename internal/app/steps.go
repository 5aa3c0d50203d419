package lifecycle

import (
	"context"
	"fmt"

	"github.com/dottey/cupctl/pkg/logger"
	"github.com/dottey/cupctl/pkg/metrics"
)

// step is one unit of a lifecycle operation. undo reverses run; a nil
// undo marks the step irreversible (deletes), so a later failure
// leaves it applied and the operation reports PartialFailure.
type step struct {
	name string
	run  func() error
	undo func() error
}

// runSteps executes steps in order, fail-fast. On the first failure
// completed steps are unwound in reverse, best-effort. If every
// completed step unwinds cleanly the causal error is returned as-is;
// otherwise the caller gets a *PartialFailure naming what is still
// applied.
func (m *Manager) runSteps(ctx context.Context, op, cup, opID string, steps []step) error {
	var completed []step

	for _, s := range steps {
		if err := s.run(); err != nil {
			cause := fmt.Errorf("step %s: %w", s.name, err)
			remaining := m.unwind(ctx, op, completed)
			if len(remaining) > 0 {
				return &PartialFailure{
					Op:          op,
					Cup:         cup,
					OperationID: opID,
					Completed:   remaining,
					Err:         cause,
				}
			}
			return fmt.Errorf("%s %s: %w", op, cup, cause)
		}
		completed = append(completed, s)
		metrics.RecordStep(op)
		m.log().Debug(ctx, "step completed",
			logger.String("op", op),
			logger.String("cup", cup),
			logger.String("operationId", opID),
			logger.String("step", s.name),
		)
	}
	return nil
}

// unwind reverses completed steps and returns the names of steps left
// applied, in execution order.
func (m *Manager) unwind(ctx context.Context, op string, completed []step) []string {
	var remaining []string
	for i := len(completed) - 1; i >= 0; i-- {
		s := completed[i]
		if s.undo == nil {
			remaining = append([]string{s.name}, remaining...)
			continue
		}
		if err := s.undo(); err != nil {
			m.log().Warn(ctx, "undo failed",
				logger.String("op", op),
				logger.String("step", s.name),
				logger.Error(err),
			)
			remaining = append([]string{s.name}, remaining...)
			continue
		}
		metrics.RecordStepUndone(op)
	}
	return remaining
}
