package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ortholine/internal/config"
	"ortholine/internal/domain"
	"ortholine/internal/engine/auth"
	"ortholine/internal/ledger"
	"ortholine/internal/logging"
	"ortholine/internal/notify"
	"ortholine/internal/repo"
	"ortholine/internal/workflow"
)

// Store is the persistence the engine needs. repo.Memory and repo.Repo satisfy it.
type Store interface {
	InsertOrder(ctx context.Context, o domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error)
	History(ctx context.Context, orderID string) ([]domain.WorkflowStep, error)
	Assignments(ctx context.Context, orderID string) ([]domain.DepartmentAssignment, error)
	UpdateAssignment(ctx context.Context, a domain.DepartmentAssignment) error
	Commit(ctx context.Context, c repo.Change) error
	ListNotifications(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, f domain.NotificationFilter) (int, error)
	DeleteNotification(ctx context.Context, id string) (bool, error)
}

type Engine struct {
	Store   Store
	Config  *config.Config
	Perms   *auth.Table
	Urgency workflow.UrgencyPolicy
	Lang    domain.Lang
	Log     logrus.FieldLogger
	Now     func() time.Time
	NewID   func() string
}

func New(store Store, cfg *config.Config, log logrus.FieldLogger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Discard()
	}
	return Engine{
		Store:   store,
		Config:  cfg,
		Perms:   auth.New(cfg),
		Urgency: workflow.NewUrgencyPolicy(cfg.Urgency.ThresholdDays, cfg.Urgency.PendingStatuses),
		Lang:    cfg.Lang,
		Log:     log,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.New().String()
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log == nil {
		return logging.Discard()
	}
	return e.Log
}

func (e Engine) dispatcher() notify.Dispatcher {
	return notify.Dispatcher{Lang: e.Lang, NewID: e.newID}
}

// OrderView is an order plus the fields derived on every read.
type OrderView struct {
	domain.Order
	StatusLabel string `json:"status_label"`
	Urgent      bool   `json:"urgent"`
}

func (e Engine) view(o domain.Order, now time.Time) OrderView {
	return OrderView{
		Order:       o,
		StatusLabel: domain.StatusLabel(o.WorkflowStatus, e.Lang),
		Urgent:      e.Urgency.Urgent(o.CreatedAt, o.WorkflowStatus, now),
	}
}

// CreateOrderOptions are parameters for registering an order.
type CreateOrderOptions struct {
	ID          string
	ProductType domain.ProductType
	Payload     json.RawMessage
	Actor       domain.Actor
}

// createOrderRight is reported in PermissionDeniedError when a role lacks orders.create.
const createOrderRight domain.Action = "orders.create"

func (e Engine) CreateOrder(ctx context.Context, opts CreateOrderOptions) (OrderView, error) {
	if !e.Perms.Can(opts.Actor.Role, "orders", auth.OpCreate) {
		return OrderView{}, domain.PermissionDeniedError{Role: opts.Actor.Role, Action: createOrderRight}
	}
	if !opts.ProductType.Valid() {
		return OrderView{}, domain.InvalidInputError{Field: "product_type", Reason: fmt.Sprintf("unknown product type %q", opts.ProductType)}
	}
	if len(opts.Payload) > 0 && !json.Valid(opts.Payload) {
		return OrderView{}, domain.InvalidInputError{Field: "payload", Reason: "must be valid JSON"}
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = e.newID()
	} else if _, err := e.Store.GetOrder(ctx, id); err == nil {
		return OrderView{}, fmt.Errorf("order %s already exists: %w", id, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return OrderView{}, err
	}
	now := e.now()
	o := domain.Order{
		ID:                id,
		ProductType:       opts.ProductType,
		Payload:           opts.Payload,
		WorkflowStatus:    domain.StatusDraft,
		CurrentDepartment: string(domain.RoleRegistration),
		CreatedBy:         opts.Actor.ID,
		CreatedAt:         now,
	}
	if err := e.Store.InsertOrder(ctx, o); err != nil {
		return OrderView{}, fmt.Errorf("insert order: %w", err)
	}
	e.log().WithFields(logrus.Fields{
		"order_id":     o.ID,
		"product_type": o.ProductType,
		"actor_id":     opts.Actor.ID,
	}).Info("order created")
	return e.view(o, now), nil
}

func (e Engine) GetOrder(ctx context.Context, id string) (OrderView, error) {
	o, err := e.Store.GetOrder(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	return e.view(o, e.now()), nil
}

// ListOrders returns newest first.
func (e Engine) ListOrders(ctx context.Context, f domain.OrderFilter) ([]OrderView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.InvalidInputError{Field: "status", Reason: fmt.Sprintf("unknown status %q", f.Status)}
	}
	orders, err := e.Store.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, e.view(o, now))
	}
	return out, nil
}

// History returns the order's steps in the order they were applied.
func (e Engine) History(ctx context.Context, orderID string) ([]domain.WorkflowStep, error) {
	if _, err := e.Store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return e.Store.History(ctx, orderID)
}

// AvailableActions lists what role may do with the order right now.
func (e Engine) AvailableActions(ctx context.Context, orderID string, role domain.Role) ([]domain.Action, error) {
	o, err := e.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return workflow.AvailableActions(e.Perms, role, o.WorkflowStatus), nil
}

// ActionRequest asks the engine to apply one workflow action.
type ActionRequest struct {
	OrderID string
	Actor   domain.Actor
	Action  domain.Action
	Comment string
}

// Outcome is what an accepted action produced. The caller decides how to deliver Notification.
type Outcome struct {
	Order        OrderView           `json:"order"`
	Step         domain.WorkflowStep `json:"step"`
	Notification domain.Notification `json:"notification"`
}

// ApplyAction validates and applies one action. On any error nothing is written.
// assign_to_production passes the permission and status checks but is then
// refused with ErrInvalidInput; it is applied only through Assign.
func (e Engine) ApplyAction(ctx context.Context, req ActionRequest) (Outcome, error) {
	o, err := e.Store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return Outcome{}, err
	}
	recipient, _ := notify.Recipient(req.Action)
	cmd := workflow.Command{
		Actor:        req.Actor,
		Action:       req.Action,
		Comment:      req.Comment,
		At:           e.now(),
		ToDepartment: string(recipient),
	}
	next, step, err := workflow.Apply(e.Perms, o, cmd)
	if err != nil {
		e.reject(o, req.Actor, req.Action, err)
		return Outcome{}, err
	}
	if req.Action == domain.ActionAssignToProduction {
		// in_production is only entered together with a ledger row.
		err := domain.InvalidInputError{Field: "action", Reason: "assign_to_production needs a department assignment; use Assign"}
		e.reject(o, req.Actor, req.Action, err)
		return Outcome{}, err
	}
	n, err := e.dispatcher().Notify(o.ID, req.Action, step.Comments, cmd.At)
	if err != nil {
		return Outcome{}, err
	}
	step.ID = e.newID()
	change := repo.Change{
		Order:        next,
		ExpectStatus: o.WorkflowStatus,
		ExpectSeq:    o.HistorySeq,
		Step:         step,
		Notification: &n,
	}
	if err := e.Store.Commit(ctx, change); err != nil {
		e.reject(o, req.Actor, req.Action, err)
		return Outcome{}, err
	}
	e.accept(step, req.Actor)
	return Outcome{Order: e.view(next, cmd.At), Step: step, Notification: n}, nil
}

// AssignRequest is a ledger request plus an optional note for the receiving department.
type AssignRequest struct {
	ledger.Request
	Comment string
}

type AssignOutcome struct {
	Order        OrderView                   `json:"order"`
	Step         domain.WorkflowStep         `json:"step"`
	Assignment   domain.DepartmentAssignment `json:"assignment"`
	Notification domain.Notification         `json:"notification"`
}

// Assign records a department assignment and moves the order with the matching
// action in one commit. If the workflow step is rejected no assignment is written.
func (e Engine) Assign(ctx context.Context, req AssignRequest) (AssignOutcome, error) {
	action, err := ledger.ActionFor(req.Department)
	if err != nil {
		return AssignOutcome{}, err
	}
	o, err := e.Store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return AssignOutcome{}, err
	}
	at := e.now()
	cmd := workflow.Command{
		Actor:        req.AssignedBy,
		Action:       action,
		Comment:      req.Comment,
		At:           at,
		ToDepartment: string(req.Department),
	}
	next, step, err := workflow.Apply(e.Perms, o, cmd)
	if err != nil {
		e.reject(o, req.AssignedBy, action, err)
		return AssignOutcome{}, err
	}
	a, err := ledger.New(req.Request, at)
	if err != nil {
		return AssignOutcome{}, err
	}
	a.ID = e.newID()
	n := e.dispatcher().NotifyAssignment(o.ID, a, step.Comments, at)
	step.ID = e.newID()
	change := repo.Change{
		Order:        next,
		ExpectStatus: o.WorkflowStatus,
		ExpectSeq:    o.HistorySeq,
		Step:         step,
		Assignment:   &a,
		Notification: &n,
	}
	if err := e.Store.Commit(ctx, change); err != nil {
		e.reject(o, req.AssignedBy, action, err)
		return AssignOutcome{}, err
	}
	e.accept(step, req.AssignedBy)
	e.log().WithFields(logrus.Fields{
		"order_id":   o.ID,
		"department": a.Department,
		"priority":   a.Priority,
	}).Info("department assigned")
	return AssignOutcome{Order: e.view(next, at), Step: step, Assignment: a, Notification: n}, nil
}

// Assignments returns the full ledger for an order in insertion order.
func (e Engine) Assignments(ctx context.Context, orderID string) ([]domain.DepartmentAssignment, error) {
	if _, err := e.Store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return e.Store.Assignments(ctx, orderID)
}

func (e Engine) CurrentAssignment(ctx context.Context, orderID string) (domain.DepartmentAssignment, error) {
	items, err := e.Assignments(ctx, orderID)
	if err != nil {
		return domain.DepartmentAssignment{}, err
	}
	cur, ok := ledger.Current(items)
	if !ok {
		return cur, fmt.Errorf("order %s has no assignment: %w", orderID, domain.ErrNotFound)
	}
	return cur, nil
}

// progressRight is reported in PermissionDeniedError when an actor may not update an assignment.
const progressRight domain.Action = "assignment.progress"

// UpdateAssignment moves the order's current assignment to status.
func (e Engine) UpdateAssignment(ctx context.Context, orderID string, status domain.AssignmentStatus, actor domain.Actor) (domain.DepartmentAssignment, error) {
	cur, err := e.CurrentAssignment(ctx, orderID)
	if err != nil {
		return cur, err
	}
	if !ledger.CanProgress(actor, cur) {
		return cur, domain.PermissionDeniedError{Role: actor.Role, Action: progressRight}
	}
	updated, err := ledger.Progress(cur, status, e.now())
	if err != nil {
		return cur, err
	}
	if err := e.Store.UpdateAssignment(ctx, updated); err != nil {
		return cur, err
	}
	e.log().WithFields(logrus.Fields{
		"order_id":      orderID,
		"assignment_id": updated.ID,
		"from":          cur.Status,
		"to":            updated.Status,
		"actor_id":      actor.ID,
	}).Info("assignment progressed")
	return updated, nil
}

// NotificationList is an inbox page with counts over the whole inbox.
type NotificationList struct {
	Items  []domain.Notification `json:"items"`
	Counts notify.Counts         `json:"counts"`
}

func (e Engine) Notifications(ctx context.Context, f domain.NotificationFilter) (NotificationList, error) {
	all, err := e.Store.ListNotifications(ctx, domain.NotificationFilter{RecipientRole: f.RecipientRole})
	if err != nil {
		return NotificationList{}, err
	}
	items := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if f.Match(n) {
			items = append(items, n)
		}
	}
	return NotificationList{Items: items, Counts: notify.Count(all)}, nil
}

// MarkRead is idempotent; found is false for unknown ids.
func (e Engine) MarkRead(ctx context.Context, id string) (bool, error) {
	return e.Store.MarkNotificationRead(ctx, id)
}

// MarkAllRead flips every unread notification for role, or all roles when empty.
func (e Engine) MarkAllRead(ctx context.Context, role domain.Role) (int, error) {
	return e.Store.MarkAllNotificationsRead(ctx, domain.NotificationFilter{RecipientRole: role})
}

func (e Engine) DeleteNotification(ctx context.Context, id string) (bool, error) {
	return e.Store.DeleteNotification(ctx, id)
}

// Dashboard summarizes orders and a role's inbox.
type Dashboard struct {
	Role          domain.Role           `json:"role"`
	Total         int                   `json:"total"`
	ByStatus      map[domain.Status]int `json:"by_status"`
	Urgent        int                   `json:"urgent"`
	Actionable    int                   `json:"actionable"`
	Notifications notify.Counts         `json:"notifications"`
}

func (e Engine) Dashboard(ctx context.Context, role domain.Role) (Dashboard, error) {
	if !role.Valid() {
		return Dashboard{}, domain.InvalidInputError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}
	orders, err := e.Store.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Role: role, ByStatus: make(map[domain.Status]int)}
	now := e.now()
	for _, o := range orders {
		d.Total++
		d.ByStatus[o.WorkflowStatus]++
		if e.Urgency.Urgent(o.CreatedAt, o.WorkflowStatus, now) {
			d.Urgent++
		}
		if len(workflow.AvailableActions(e.Perms, role, o.WorkflowStatus)) > 0 {
			d.Actionable++
		}
	}
	inbox, err := e.Store.ListNotifications(ctx, domain.NotificationFilter{RecipientRole: role})
	if err != nil {
		return Dashboard{}, err
	}
	d.Notifications = notify.Count(inbox)
	return d, nil
}

func (e Engine) Capabilities(role domain.Role) (auth.Capabilities, error) {
	caps, ok := e.Perms.Capabilities(role, e.Lang)
	if !ok {
		return caps, fmt.Errorf("role %s: %w", role, domain.ErrNotFound)
	}
	return caps, nil
}

func (e Engine) accept(step domain.WorkflowStep, actor domain.Actor) {
	e.log().WithFields(logrus.Fields{
		"order_id": step.OrderID,
		"action":   step.Action,
		"from":     step.FromStatus,
		"to":       step.ResultingStatus,
		"actor_id": actor.ID,
		"role":     actor.Role,
	}).Info("transition applied")
}

func (e Engine) reject(o domain.Order, actor domain.Actor, action domain.Action, err error) {
	e.log().WithFields(logrus.Fields{
		"order_id": o.ID,
		"action":   action,
		"status":   o.WorkflowStatus,
		"actor_id": actor.ID,
		"role":     actor.Role,
		"kind":     Kind(err),
	}).WithError(err).Warn("transition rejected")
}

// Kind names the error class for logs and transport envelopes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, domain.ErrMissingComment):
		return "missing_comment"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return "bad_request"
	default:
		return "internal_error"
	}
}
