// Package workflow holds the order state machine: the transition table, the
// validation order for a requested action and the derived urgency flag. Every
// function here is pure; persistence and side effects live in the engine.
package workflow

import (
	"strings"
	"time"

	"ortholine/internal/domain"
)

// Transition lists the source statuses from which an action is legal.
type Transition struct {
	Action domain.Action
	From   []domain.Status
	To     domain.Status
}

// Transitions is the complete table. Actions absent from a row's From are illegal.
var Transitions = []Transition{
	{Action: domain.ActionSendToMedical, From: []domain.Status{domain.StatusDraft, domain.StatusRegistrationPending}, To: domain.StatusMedicalReview},
	{Action: domain.ActionSendToChief, From: []domain.Status{domain.StatusMedicalReview}, To: domain.StatusChiefApproval},
	{Action: domain.ActionApprove, From: []domain.Status{domain.StatusChiefApproval}, To: domain.StatusDispatcherAssignment},
	{Action: domain.ActionReject, From: []domain.Status{domain.StatusChiefApproval}, To: domain.StatusRejected},
	{Action: domain.ActionReturnForRevision, From: []domain.Status{domain.StatusChiefApproval}, To: domain.StatusReturnedForRevision},
	{Action: domain.ActionAssignToProduction, From: []domain.Status{domain.StatusDispatcherAssignment}, To: domain.StatusInProduction},
	{Action: domain.ActionMarkReady, From: []domain.Status{domain.StatusInProduction}, To: domain.StatusReadyForFitting},
	{Action: domain.ActionComplete, From: []domain.Status{domain.StatusReadyForFitting}, To: domain.StatusCompleted},
}

// Checker decides whether a role may invoke an action.
type Checker interface {
	Check(role domain.Role, action domain.Action) error
}

// Next returns the status reached by applying action from status.
func Next(status domain.Status, action domain.Action) (domain.Status, bool) {
	for _, t := range Transitions {
		if t.Action != action {
			continue
		}
		for _, from := range t.From {
			if from == status {
				return t.To, true
			}
		}
	}
	return "", false
}

// Command is one requested workflow action.
type Command struct {
	Actor        domain.Actor
	Action       domain.Action
	Comment      string
	At           time.Time
	ToDepartment string
}

// Validate runs the checks in order: permission, source status, comment.
func Validate(perms Checker, status domain.Status, cmd Command) (domain.Status, error) {
	if err := perms.Check(cmd.Actor.Role, cmd.Action); err != nil {
		return "", err
	}
	next, ok := Next(status, cmd.Action)
	if !ok {
		return "", domain.IllegalTransitionError{Action: cmd.Action, Status: status}
	}
	if cmd.Action.RequiresComment() && strings.TrimSpace(cmd.Comment) == "" {
		return "", domain.MissingCommentError{Action: cmd.Action}
	}
	return next, nil
}

// Apply computes the order after cmd and the history step describing it.
// The input order is not modified. The step carries no ID.
func Apply(perms Checker, o domain.Order, cmd Command) (domain.Order, domain.WorkflowStep, error) {
	next, err := Validate(perms, o.WorkflowStatus, cmd)
	if err != nil {
		return o, domain.WorkflowStep{}, err
	}
	step := domain.WorkflowStep{
		OrderID:         o.ID,
		Seq:             o.HistorySeq + 1,
		FromDepartment:  string(cmd.Actor.Role),
		ToDepartment:    cmd.ToDepartment,
		Action:          cmd.Action,
		FromStatus:      o.WorkflowStatus,
		ResultingStatus: next,
		PerformedBy:     cmd.Actor.ID,
		PerformedAt:     cmd.At,
		Comments:        strings.TrimSpace(cmd.Comment),
	}
	o.WorkflowStatus = next
	o.HistorySeq = step.Seq
	return o, step, nil
}

// AvailableActions lists what role may do from status, in pipeline order.
func AvailableActions(perms Checker, role domain.Role, status domain.Status) []domain.Action {
	var out []domain.Action
	for _, a := range domain.Actions {
		if perms.Check(role, a) != nil {
			continue
		}
		if _, ok := Next(status, a); ok {
			out = append(out, a)
		}
	}
	return out
}

// UrgencyPolicy decides when a waiting order becomes urgent.
type UrgencyPolicy struct {
	Threshold time.Duration
	Pending   map[domain.Status]bool
}

func NewUrgencyPolicy(thresholdDays int, pending []domain.Status) UrgencyPolicy {
	p := UrgencyPolicy{
		Threshold: time.Duration(thresholdDays) * 24 * time.Hour,
		Pending:   make(map[domain.Status]bool, len(pending)),
	}
	for _, s := range pending {
		p.Pending[s] = true
	}
	return p
}

// Urgent is true when status is pending and the order is strictly older than the threshold.
func (p UrgencyPolicy) Urgent(createdAt time.Time, status domain.Status, now time.Time) bool {
	if !p.Pending[status] {
		return false
	}
	return now.Sub(createdAt) > p.Threshold
}
