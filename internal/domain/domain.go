package domain

import (
	"encoding/json"
	"time"
)

// Status is the coarse lifecycle stage of an order.
type Status string

const (
	StatusDraft                Status = "draft"
	StatusRegistrationPending  Status = "registration_pending"
	StatusMedicalReview        Status = "medical_review"
	StatusChiefApproval        Status = "chief_approval"
	StatusDispatcherAssignment Status = "dispatcher_assignment"
	StatusInProduction         Status = "in_production"
	StatusReadyForFitting      Status = "ready_for_fitting"
	StatusCompleted            Status = "completed"
	StatusRejected             Status = "rejected"
	StatusReturnedForRevision  Status = "returned_for_revision"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusDraft,
	StatusRegistrationPending,
	StatusMedicalReview,
	StatusChiefApproval,
	StatusDispatcherAssignment,
	StatusInProduction,
	StatusReadyForFitting,
	StatusCompleted,
	StatusRejected,
	StatusReturnedForRevision,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further action can leave s by design.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Action is an operator-invoked workflow command.
type Action string

const (
	ActionSendToMedical      Action = "send_to_medical"
	ActionSendToChief        Action = "send_to_chief"
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionReturnForRevision  Action = "return_for_revision"
	ActionAssignToProduction Action = "assign_to_production"
	ActionMarkReady          Action = "mark_ready"
	ActionComplete           Action = "complete"
)

var Actions = []Action{
	ActionSendToMedical,
	ActionSendToChief,
	ActionApprove,
	ActionReject,
	ActionReturnForRevision,
	ActionAssignToProduction,
	ActionMarkReady,
	ActionComplete,
}

func (a Action) Valid() bool {
	for _, v := range Actions {
		if v == a {
			return true
		}
	}
	return false
}

// RequiresComment reports whether a justification must accompany a.
func (a Action) RequiresComment() bool {
	return a == ActionReject || a == ActionReturnForRevision
}

// Role is the static identity class of an actor.
type Role string

const (
	RoleRegistration   Role = "registration"
	RoleMedical        Role = "medical"
	RoleChiefDoctor    Role = "chief_doctor"
	RoleDispatcher     Role = "dispatcher"
	RoleWorkshop       Role = "workshop"
	RoleWarehouse      Role = "warehouse"
	RoleAdministration Role = "administration"
)

var Roles = []Role{
	RoleRegistration,
	RoleMedical,
	RoleChiefDoctor,
	RoleDispatcher,
	RoleWorkshop,
	RoleWarehouse,
	RoleAdministration,
}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// Department is the closed set of departments an order can be assigned to.
type Department string

const (
	DepartmentMedical    Department = "medical"
	DepartmentWorkshop   Department = "workshop"
	DepartmentWarehouse  Department = "warehouse"
	DepartmentDispatcher Department = "dispatcher"
)

var Departments = []Department{DepartmentMedical, DepartmentWorkshop, DepartmentWarehouse, DepartmentDispatcher}

func (d Department) Valid() bool {
	for _, v := range Departments {
		if v == d {
			return true
		}
	}
	return false
}

// Role returns the role that staffs the department.
func (d Department) Role() Role {
	return Role(d)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentOnHold     AssignmentStatus = "on_hold"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentInProgress, AssignmentCompleted, AssignmentOnHold:
		return true
	}
	return false
}

type NotificationType string

const (
	NotificationWorkflowUpdate   NotificationType = "workflow_update"
	NotificationApprovalRequired NotificationType = "approval_required"
	NotificationRejection        NotificationType = "rejection"
	NotificationAssignment       NotificationType = "assignment"
)

// ProductType discriminates the type-specific order payload.
type ProductType string

const (
	ProductProsthesis ProductType = "prosthesis"
	ProductFootwear   ProductType = "footwear"
	ProductOrthosis   ProductType = "orthosis"
	ProductOttobock   ProductType = "ottobock"
	ProductRepair     ProductType = "repair"
	ProductReadyMade  ProductType = "ready_made"
)

var ProductTypes = []ProductType{ProductProsthesis, ProductFootwear, ProductOrthosis, ProductOttobock, ProductRepair, ProductReadyMade}

func (p ProductType) Valid() bool {
	for _, v := range ProductTypes {
		if v == p {
			return true
		}
	}
	return false
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Order struct {
	ID                string          `json:"id"`
	ProductType       ProductType     `json:"product_type"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	WorkflowStatus    Status          `json:"workflow_status"`
	CurrentDepartment string          `json:"current_department"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	// HistorySeq counts the steps appended so far; stores use it for compare-and-swap.
	HistorySeq int `json:"history_seq"`
}

// WorkflowStep is one append-only entry of an order's history.
type WorkflowStep struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	Seq             int       `json:"seq"`
	FromDepartment  string    `json:"from_department"`
	ToDepartment    string    `json:"to_department"`
	Action          Action    `json:"action"`
	FromStatus      Status    `json:"from_status"`
	ResultingStatus Status    `json:"resulting_status"`
	PerformedBy     string    `json:"performed_by"`
	PerformedAt     time.Time `json:"performed_at"`
	Comments        string    `json:"comments,omitempty"`
}

type DepartmentAssignment struct {
	ID                      string           `json:"id"`
	OrderID                 string           `json:"order_id"`
	Department              Department       `json:"department"`
	AssignedBy              string           `json:"assigned_by"`
	AssignedAt              time.Time        `json:"assigned_at"`
	Priority                Priority         `json:"priority"`
	EstimatedCompletionDate time.Time        `json:"estimated_completion_date"`
	ActualCompletionDate    *time.Time       `json:"actual_completion_date,omitempty"`
	Status                  AssignmentStatus `json:"status"`
}

type Notification struct {
	ID             string           `json:"id"`
	OrderID        string           `json:"order_id"`
	RecipientRole  Role             `json:"recipient_role"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	IsRead         bool             `json:"is_read"`
	Priority       Priority         `json:"priority"`
	ActionRequired bool             `json:"action_required"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationFilter narrows notification listings. Zero value matches all.
type NotificationFilter struct {
	RecipientRole Role
	UnreadOnly    bool
}

func (f NotificationFilter) Match(n Notification) bool {
	if f.RecipientRole != "" && n.RecipientRole != f.RecipientRole {
		return false
	}
	if f.UnreadOnly && n.IsRead {
		return false
	}
	return true
}

// OrderFilter narrows order listings. Zero value matches all.
type OrderFilter struct {
	Status Status
}
