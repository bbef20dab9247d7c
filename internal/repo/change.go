package repo

import (
	"errors"
	"fmt"

	"ortholine/internal/domain"
)

// Change is one accepted workflow transition. Stores apply it atomically:
// the order status is swapped only if it still matches ExpectStatus and
// ExpectSeq, then the step, assignment and notification are written.
type Change struct {
	Order        domain.Order
	ExpectStatus domain.Status
	ExpectSeq    int
	Step         domain.WorkflowStep
	Assignment   *domain.DepartmentAssignment
	Notification *domain.Notification
}

func (c Change) validate() error {
	if c.Order.ID == "" {
		return errors.New("change: order id required")
	}
	if c.Step.OrderID != c.Order.ID {
		return fmt.Errorf("change: step belongs to order %s, not %s", c.Step.OrderID, c.Order.ID)
	}
	if c.Step.ResultingStatus != c.Order.WorkflowStatus {
		return fmt.Errorf("change: step result %s differs from order status %s", c.Step.ResultingStatus, c.Order.WorkflowStatus)
	}
	if c.Step.Seq != c.ExpectSeq+1 || c.Order.HistorySeq != c.Step.Seq {
		return fmt.Errorf("change: step seq %d does not follow %d", c.Step.Seq, c.ExpectSeq)
	}
	if c.Assignment != nil && c.Assignment.OrderID != c.Order.ID {
		return fmt.Errorf("change: assignment belongs to order %s, not %s", c.Assignment.OrderID, c.Order.ID)
	}
	return nil
}
