// Package ledger keeps the department assignment rules. The ledger is
// append-only: a new assignment supersedes older ones without closing them,
// and the current assignment is the latest by AssignedAt.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"ortholine/internal/domain"
)

// Request carries the caller's input for a new assignment.
type Request struct {
	OrderID                 string
	Department              domain.Department
	Priority                domain.Priority
	EstimatedCompletionDate time.Time
	AssignedBy              domain.Actor
}

// ActionFor returns the workflow action that moves an order into the department.
// Every department is entered from dispatcher_assignment, so all map to
// assign_to_production.
func ActionFor(d domain.Department) (domain.Action, error) {
	switch d {
	case domain.DepartmentWorkshop, domain.DepartmentWarehouse, domain.DepartmentMedical, domain.DepartmentDispatcher:
		return domain.ActionAssignToProduction, nil
	}
	return "", domain.InvalidInputError{Field: "department", Reason: fmt.Sprintf("unknown department %q", d)}
}

// New validates req and builds the assignment row. The ID is left to the caller.
func New(req Request, at time.Time) (domain.DepartmentAssignment, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return domain.DepartmentAssignment{}, domain.InvalidInputError{Field: "order_id", Reason: "required"}
	}
	if !req.Department.Valid() {
		return domain.DepartmentAssignment{}, domain.InvalidInputError{Field: "department", Reason: fmt.Sprintf("unknown department %q", req.Department)}
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if !req.Priority.Valid() {
		return domain.DepartmentAssignment{}, domain.InvalidInputError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", req.Priority)}
	}
	if req.EstimatedCompletionDate.IsZero() {
		return domain.DepartmentAssignment{}, domain.InvalidInputError{Field: "estimated_completion_date", Reason: "required"}
	}
	return domain.DepartmentAssignment{
		OrderID:                 req.OrderID,
		Department:              req.Department,
		AssignedBy:              req.AssignedBy.ID,
		AssignedAt:              at,
		Priority:                req.Priority,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
		Status:                  domain.AssignmentAssigned,
	}, nil
}

// Current returns the latest assignment by AssignedAt. On equal timestamps the
// later entry in items wins, so callers pass items in insertion order.
func Current(items []domain.DepartmentAssignment) (domain.DepartmentAssignment, bool) {
	var (
		cur   domain.DepartmentAssignment
		found bool
	)
	for _, a := range items {
		if !found || !a.AssignedAt.Before(cur.AssignedAt) {
			cur = a
			found = true
		}
	}
	return cur, found
}

// Progress moves an assignment to status. Completed is final.
func Progress(a domain.DepartmentAssignment, status domain.AssignmentStatus, at time.Time) (domain.DepartmentAssignment, error) {
	if !status.Valid() {
		return a, domain.InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown assignment status %q", status)}
	}
	if !progressAllowed(a.Status, status) {
		return a, fmt.Errorf("assignment %s cannot move %s -> %s: %w", a.ID, a.Status, status, domain.ErrIllegalTransition)
	}
	a.Status = status
	if status == domain.AssignmentCompleted {
		done := at
		a.ActualCompletionDate = &done
	}
	return a, nil
}

func progressAllowed(from, to domain.AssignmentStatus) bool {
	switch from {
	case domain.AssignmentAssigned:
		return to == domain.AssignmentInProgress || to == domain.AssignmentOnHold || to == domain.AssignmentCompleted
	case domain.AssignmentInProgress:
		return to == domain.AssignmentOnHold || to == domain.AssignmentCompleted
	case domain.AssignmentOnHold:
		return to == domain.AssignmentInProgress || to == domain.AssignmentAssigned
	}
	return false
}

// CanProgress reports whether actor may update a. The receiving department and
// the dispatcher who routes work both qualify.
func CanProgress(actor domain.Actor, a domain.DepartmentAssignment) bool {
	return actor.Role == a.Department.Role() || actor.Role == domain.RoleDispatcher
}

// Overdue reports whether an open assignment has passed its estimate. Informational only.
func Overdue(a domain.DepartmentAssignment, now time.Time) bool {
	if a.Status == domain.AssignmentCompleted {
		return false
	}
	return now.After(a.EstimatedCompletionDate)
}
