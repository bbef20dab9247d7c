package ortholinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Ortholine HTTP API client. Every request is sent as
// the configured actor.
type Client struct {
	BaseURL    string
	ActorID    string
	Role       string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, actorID, role string) *Client {
	return &Client{
		BaseURL: baseURL,
		ActorID: actorID,
		Role:    role,
		Timeout: 10 * time.Second,
	}
}

// Order represents the API order model.
type Order struct {
	ID                string         `json:"id"`
	ProductType       string         `json:"product_type"`
	Payload           map[string]any `json:"payload,omitempty"`
	WorkflowStatus    string         `json:"workflow_status"`
	StatusLabel       string         `json:"status_label"`
	CurrentDepartment string         `json:"current_department"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	Urgent            bool           `json:"urgent"`
}

// Step is one workflow history entry.
type Step struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	Seq             int       `json:"seq"`
	FromDepartment  string    `json:"from_department"`
	ToDepartment    string    `json:"to_department"`
	Action          string    `json:"action"`
	FromStatus      string    `json:"from_status"`
	ResultingStatus string    `json:"resulting_status"`
	PerformedBy     string    `json:"performed_by"`
	PerformedAt     time.Time `json:"performed_at"`
	Comments        string    `json:"comments,omitempty"`
}

type Assignment struct {
	ID                      string     `json:"id"`
	OrderID                 string     `json:"order_id"`
	Department              string     `json:"department"`
	AssignedBy              string     `json:"assigned_by"`
	AssignedAt              time.Time  `json:"assigned_at"`
	Priority                string     `json:"priority"`
	EstimatedCompletionDate time.Time  `json:"estimated_completion_date"`
	ActualCompletionDate    *time.Time `json:"actual_completion_date,omitempty"`
	Status                  string     `json:"status"`
}

type Notification struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	RecipientRole  string    `json:"recipient_role"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	Priority       string    `json:"priority"`
	ActionRequired bool      `json:"action_required"`
	CreatedAt      time.Time `json:"created_at"`
}

// Inbox is a notification listing with counts over the role's whole inbox.
type Inbox struct {
	Items  []Notification `json:"items"`
	Counts struct {
		Total        int `json:"total"`
		Unread       int `json:"unread"`
		UnreadUrgent int `json:"unread_urgent"`
	} `json:"counts"`
}

// ActionResult is returned by ApplyAction.
type ActionResult struct {
	Order        Order        `json:"order"`
	Step         Step         `json:"step"`
	Notification Notification `json:"notification"`
}

// AssignResult is returned by Assign.
type AssignResult struct {
	Order        Order        `json:"order"`
	Step         Step         `json:"step"`
	Assignment   Assignment   `json:"assignment"`
	Notification Notification `json:"notification"`
}

// APIError wraps non-2xx responses. Code is the error envelope's code when present.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// CreateOrder registers an order in draft.
func (c *Client) CreateOrder(ctx context.Context, productType string, payload map[string]any) (Order, error) {
	body := map[string]any{"product_type": productType}
	if payload != nil {
		body["payload"] = payload
	}
	var resp Order
	err := c.do(ctx, http.MethodPost, "v0/orders", body, &resp)
	return resp, err
}

func (c *Client) GetOrder(ctx context.Context, id string) (Order, error) {
	var resp Order
	err := c.do(ctx, http.MethodGet, "v0/orders/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// History returns the order's steps, oldest first.
func (c *Client) History(ctx context.Context, orderID string) ([]Step, error) {
	var resp struct {
		Items []Step `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/orders/%s/history", url.PathEscape(orderID)), nil, &resp)
	return resp.Items, err
}

// AvailableActions lists what the client's role may do with the order now.
func (c *Client) AvailableActions(ctx context.Context, orderID string) ([]string, error) {
	var resp struct {
		Actions []string `json:"actions"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/orders/%s/actions", url.PathEscape(orderID)), nil, &resp)
	return resp.Actions, err
}

// ApplyAction performs a workflow action. Comment is required for reject and return_for_revision.
func (c *Client) ApplyAction(ctx context.Context, orderID, action, comment string) (ActionResult, error) {
	body := map[string]any{"action": action}
	if comment != "" {
		body["comment"] = comment
	}
	var resp ActionResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/orders/%s/actions", url.PathEscape(orderID)), body, &resp)
	return resp, err
}

// Assign hands an approved order to a department.
func (c *Client) Assign(ctx context.Context, orderID, department, priority string, eta time.Time) (AssignResult, error) {
	body := map[string]any{
		"department":                department,
		"estimated_completion_date": eta.UTC().Format(time.RFC3339),
	}
	if priority != "" {
		body["priority"] = priority
	}
	var resp AssignResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/orders/%s/assignments", url.PathEscape(orderID)), body, &resp)
	return resp, err
}

// Notifications returns the client role's inbox.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) (Inbox, error) {
	endpoint := "v0/notifications"
	if unreadOnly {
		endpoint += "?unread=true"
	}
	var resp Inbox
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MarkRead reports whether the notification existed.
func (c *Client) MarkRead(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Found bool `json:"found"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/notifications/%s/read", url.PathEscape(id)), nil, &resp)
	return resp.Found, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", c.ActorID)
	req.Header.Set("X-Actor-Role", c.Role)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
