package server

import (
	"encoding/json"
	"time"

	"ortholine/internal/domain"
	"ortholine/internal/engine"
)

// Request payloads

type CreateOrderRequest struct {
	ID          *string        `json:"id,omitempty"`
	ProductType string         `json:"product_type" enum:"prosthesis,footwear,orthosis,ottobock,repair,ready_made"`
	Payload     map[string]any `json:"payload,omitempty"`
}

type ApplyActionRequest struct {
	Action  string `json:"action" enum:"send_to_medical,send_to_chief,approve,reject,return_for_revision,assign_to_production,mark_ready,complete"`
	Comment string `json:"comment,omitempty"`
}

type AssignRequest struct {
	Department              string    `json:"department" enum:"medical,workshop,warehouse,dispatcher"`
	Priority                string    `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	EstimatedCompletionDate time.Time `json:"estimated_completion_date"`
	Comment                 string    `json:"comment,omitempty"`
}

type UpdateAssignmentRequest struct {
	Status string `json:"status" enum:"assigned,in_progress,completed,on_hold"`
}

// Responses

type OrderResponse struct {
	ID                string         `json:"id"`
	ProductType       string         `json:"product_type"`
	Payload           map[string]any `json:"payload,omitempty"`
	WorkflowStatus    string         `json:"workflow_status"`
	StatusLabel       string         `json:"status_label"`
	CurrentDepartment string         `json:"current_department"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	HistorySeq        int            `json:"history_seq"`
	Urgent            bool           `json:"urgent"`
}

type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
}

type HistoryResponse struct {
	Items []domain.WorkflowStep `json:"items"`
}

type ActionsResponse struct {
	Actions []string `json:"actions"`
}

type ActionResponse struct {
	Order        OrderResponse       `json:"order"`
	Step         domain.WorkflowStep `json:"step"`
	Notification domain.Notification `json:"notification"`
}

type AssignResponse struct {
	Order        OrderResponse               `json:"order"`
	Step         domain.WorkflowStep         `json:"step"`
	Assignment   domain.DepartmentAssignment `json:"assignment"`
	Notification domain.Notification         `json:"notification"`
}

type AssignmentListResponse struct {
	Items []domain.DepartmentAssignment `json:"items"`
}

type ReadResponse struct {
	ID    string `json:"id"`
	Found bool   `json:"found"`
}

type ReadAllResponse struct {
	Updated int `json:"updated"`
}

func orderResponse(v engine.OrderView) OrderResponse {
	out := OrderResponse{
		ID:                v.ID,
		ProductType:       string(v.ProductType),
		WorkflowStatus:    string(v.WorkflowStatus),
		StatusLabel:       v.StatusLabel,
		CurrentDepartment: v.CurrentDepartment,
		CreatedBy:         v.CreatedBy,
		CreatedAt:         v.CreatedAt,
		HistorySeq:        v.HistorySeq,
		Urgent:            v.Urgent,
	}
	if len(v.Payload) > 0 {
		_ = json.Unmarshal(v.Payload, &out.Payload)
	}
	return out
}

func mapOrders(items []engine.OrderView) []OrderResponse {
	out := make([]OrderResponse, 0, len(items))
	for _, v := range items {
		out = append(out, orderResponse(v))
	}
	return out
}

func actionStrings(items []domain.Action) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, string(a))
	}
	return out
}
