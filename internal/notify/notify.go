package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ortholine/internal/domain"
)

type route struct {
	recipient      domain.Role
	kind           domain.NotificationType
	actionRequired bool
	title          domain.Label
	message        domain.Label
}

// Routes address each action to the role that must act next.
var routes = map[domain.Action]route{
	domain.ActionSendToMedical: {
		recipient: domain.RoleMedical,
		kind:      domain.NotificationWorkflowUpdate,
		title:     domain.Label{RU: "Новый заказ на осмотр", EN: "New order for medical review"},
		message:   domain.Label{RU: "Заказ %s передан в медицинский отдел", EN: "Order %s was sent to the medical department"},
	},
	domain.ActionSendToChief: {
		recipient:      domain.RoleChiefDoctor,
		kind:           domain.NotificationApprovalRequired,
		actionRequired: true,
		title:          domain.Label{RU: "Требуется утверждение", EN: "Approval required"},
		message:        domain.Label{RU: "Заказ %s ожидает решения главного врача", EN: "Order %s awaits the chief doctor's decision"},
	},
	domain.ActionApprove: {
		recipient: domain.RoleDispatcher,
		kind:      domain.NotificationWorkflowUpdate,
		title:     domain.Label{RU: "Заказ утверждён", EN: "Order approved"},
		message:   domain.Label{RU: "Заказ %s утверждён и ожидает назначения", EN: "Order %s was approved and awaits assignment"},
	},
	domain.ActionReject: {
		recipient: domain.RoleRegistration,
		kind:      domain.NotificationRejection,
		title:     domain.Label{RU: "Заказ отклонён", EN: "Order rejected"},
		message:   domain.Label{RU: "Заказ %s отклонён главным врачом", EN: "Order %s was rejected by the chief doctor"},
	},
	domain.ActionReturnForRevision: {
		recipient: domain.RoleRegistration,
		kind:      domain.NotificationRejection,
		title:     domain.Label{RU: "Заказ возвращён на доработку", EN: "Order returned for revision"},
		message:   domain.Label{RU: "Заказ %s возвращён на доработку", EN: "Order %s was returned for revision"},
	},
	domain.ActionAssignToProduction: {
		recipient: domain.RoleWorkshop,
		kind:      domain.NotificationAssignment,
		title:     domain.Label{RU: "Заказ передан в производство", EN: "Order assigned to production"},
		message:   domain.Label{RU: "Заказ %s передан в производство", EN: "Order %s was assigned to production"},
	},
	domain.ActionMarkReady: {
		recipient: domain.RoleWarehouse,
		kind:      domain.NotificationWorkflowUpdate,
		title:     domain.Label{RU: "Изделие готово", EN: "Device ready"},
		message:   domain.Label{RU: "Изделие по заказу %s готово к примерке", EN: "The device for order %s is ready for fitting"},
	},
	domain.ActionComplete: {
		recipient: domain.RoleRegistration,
		kind:      domain.NotificationWorkflowUpdate,
		title:     domain.Label{RU: "Заказ выполнен", EN: "Order completed"},
		message:   domain.Label{RU: "Заказ %s выполнен", EN: "Order %s was completed"},
	},
}

var commentLabel = domain.Label{RU: "Комментарий", EN: "Comment"}

// Recipient returns the role that must act after action.
func Recipient(action domain.Action) (domain.Role, bool) {
	r, ok := routes[action]
	return r.recipient, ok
}

// Dispatcher derives notifications. It never delivers them.
type Dispatcher struct {
	Lang  domain.Lang
	NewID func() string
}

func (d Dispatcher) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.New().String()
}

// Notify builds the notification for action on orderID.
func (d Dispatcher) Notify(orderID string, action domain.Action, comment string, at time.Time) (domain.Notification, error) {
	r, ok := routes[action]
	if !ok {
		return domain.Notification{}, domain.InvalidInputError{Field: "action", Reason: fmt.Sprintf("no notification route for %q", action)}
	}
	return d.build(orderID, r, comment, at, domain.PriorityMedium), nil
}

// NotifyAssignment addresses an assignment to the department that received it,
// carrying the assignment priority.
func (d Dispatcher) NotifyAssignment(orderID string, a domain.DepartmentAssignment, comment string, at time.Time) domain.Notification {
	r := routes[domain.ActionAssignToProduction]
	r.recipient = a.Department.Role()
	priority := a.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	return d.build(orderID, r, comment, at, priority)
}

func (d Dispatcher) build(orderID string, r route, comment string, at time.Time, priority domain.Priority) domain.Notification {
	msg := fmt.Sprintf(r.message.In(d.Lang), orderID)
	if c := strings.TrimSpace(comment); c != "" {
		msg = fmt.Sprintf("%s. %s: %s", msg, commentLabel.In(d.Lang), c)
	}
	return domain.Notification{
		ID:             d.newID(),
		OrderID:        orderID,
		RecipientRole:  r.recipient,
		Type:           r.kind,
		Title:          r.title.In(d.Lang),
		Message:        msg,
		IsRead:         false,
		Priority:       priority,
		ActionRequired: r.actionRequired,
		CreatedAt:      at,
	}
}

// Counts summarizes an inbox.
type Counts struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	UnreadUrgent int `json:"unread_urgent"`
}

// Count treats high and urgent priorities as urgent.
func Count(items []domain.Notification) Counts {
	var c Counts
	for _, n := range items {
		c.Total++
		if n.IsRead {
			continue
		}
		c.Unread++
		if n.Priority == domain.PriorityUrgent || n.Priority == domain.PriorityHigh {
			c.UnreadUrgent++
		}
	}
	return c
}
