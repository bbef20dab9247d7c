package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"ortholine/internal/config"
	"ortholine/internal/domain"
	"ortholine/internal/engine"
	"ortholine/internal/repo"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	e := engine.New(repo.NewMemory(), config.Default(), nil)
	e.Lang = domain.LangEN
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func as(role domain.Role) map[string]string {
	return map[string]string{headerActorID: string(role) + "-1", headerActorRole: string(role)}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error apiErrorBody `json:"error"`
}

func expectError(t *testing.T, res *http.Response, data []byte, status int, code string) {
	t.Helper()
	if res.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, res.StatusCode, string(data))
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if env.Error.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, env.Error.Code, env.Error.Message)
	}
}

func createOrder(t *testing.T, srv *testServer) OrderResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/orders", map[string]any{
		"product_type": "orthosis",
		"payload":      map[string]any{"side": "right"},
	}, as(domain.RoleRegistration))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create order: %d %s", res.StatusCode, string(data))
	}
	var o OrderResponse
	if err := json.Unmarshal(data, &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	return o
}

func applyAction(t *testing.T, srv *testServer, orderID string, role domain.Role, action domain.Action, comment string) (*http.Response, []byte) {
	t.Helper()
	return doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/orders/"+orderID+"/actions", map[string]any{
		"action":  action,
		"comment": comment,
	}, as(role))
}

func TestOrderWorkflowOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	o := createOrder(t, srv)
	if o.WorkflowStatus != "draft" || o.StatusLabel != "Draft" || o.Payload["side"] != "right" {
		t.Fatalf("unexpected order: %+v", o)
	}

	for _, step := range []struct {
		role   domain.Role
		action domain.Action
	}{
		{domain.RoleRegistration, domain.ActionSendToMedical},
		{domain.RoleMedical, domain.ActionSendToChief},
		{domain.RoleChiefDoctor, domain.ActionApprove},
	} {
		res, data := applyAction(t, srv, o.ID, step.role, step.action, "")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", step.action, res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/orders/"+o.ID+"/actions", nil, as(domain.RoleDispatcher))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("actions: %d %s", res.StatusCode, string(data))
	}
	var actions ActionsResponse
	_ = json.Unmarshal(data, &actions)
	if len(actions.Actions) != 1 || actions.Actions[0] != "assign_to_production" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	res, data = applyAction(t, srv, o.ID, domain.RoleDispatcher, domain.ActionAssignToProduction, "")
	expectError(t, res, data, http.StatusBadRequest, "bad_request")

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/orders/"+o.ID+"/assignments", map[string]any{
		"department":                "workshop",
		"priority":                  "urgent",
		"estimated_completion_date": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}, as(domain.RoleDispatcher))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("assign: %d %s", res.StatusCode, string(data))
	}
	var assigned AssignResponse
	if err := json.Unmarshal(data, &assigned); err != nil {
		t.Fatalf("unmarshal assign: %v", err)
	}
	if assigned.Order.WorkflowStatus != "in_production" || assigned.Notification.RecipientRole != domain.RoleWorkshop {
		t.Fatalf("unexpected assign response: %+v", assigned)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v0/orders/"+o.ID+"/assignments/current", map[string]any{
		"status": "in_progress",
	}, as(domain.RoleWorkshop))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("progress: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/orders/"+o.ID+"/history", nil, as(domain.RoleAdministration))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history: %d %s", res.StatusCode, string(data))
	}
	var history HistoryResponse
	_ = json.Unmarshal(data, &history)
	if len(history.Items) != 4 || history.Items[3].ResultingStatus != domain.StatusInProduction {
		t.Fatalf("unexpected history: %+v", history.Items)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/notifications", nil, as(domain.RoleWorkshop))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("notifications: %d %s", res.StatusCode, string(data))
	}
	var inbox engine.NotificationList
	_ = json.Unmarshal(data, &inbox)
	if inbox.Counts.UnreadUrgent != 1 || len(inbox.Items) != 1 {
		t.Fatalf("unexpected inbox: %+v", inbox)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/notifications/"+inbox.Items[0].ID+"/read", nil, as(domain.RoleWorkshop))
	var read ReadResponse
	_ = json.Unmarshal(data, &read)
	if res.StatusCode != http.StatusOK || !read.Found {
		t.Fatalf("read: %d %s", res.StatusCode, string(data))
	}
}

func TestErrorMapping(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	o := createOrder(t, srv)

	res, data := applyAction(t, srv, o.ID, domain.RoleRegistration, domain.ActionApprove, "")
	expectError(t, res, data, http.StatusForbidden, "permission_denied")

	res, data = applyAction(t, srv, o.ID, domain.RoleMedical, domain.ActionSendToChief, "")
	expectError(t, res, data, http.StatusConflict, "illegal_transition")

	applyAction(t, srv, o.ID, domain.RoleRegistration, domain.ActionSendToMedical, "")
	applyAction(t, srv, o.ID, domain.RoleMedical, domain.ActionSendToChief, "")
	res, data = applyAction(t, srv, o.ID, domain.RoleChiefDoctor, domain.ActionReject, "")
	expectError(t, res, data, http.StatusBadRequest, "missing_comment")

	res, data = applyAction(t, srv, "missing", domain.RoleChiefDoctor, domain.ActionApprove, "")
	expectError(t, res, data, http.StatusNotFound, "not_found")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/orders", nil, nil)
	expectError(t, res, data, http.StatusUnauthorized, "unauthorized")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/orders", nil, map[string]string{headerActorID: "x", headerActorRole: "janitor"})
	expectError(t, res, data, http.StatusUnauthorized, "invalid_credentials")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/orders?status=lost", nil, as(domain.RoleAdministration))
	expectError(t, res, data, http.StatusBadRequest, "bad_request")
}

func TestHealthAndRoles(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/roles/chief_doctor", nil, as(domain.RoleRegistration))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("roles: %d %s", res.StatusCode, string(data))
	}
	var caps struct {
		Label   string   `json:"label"`
		Actions []string `json:"actions"`
	}
	_ = json.Unmarshal(data, &caps)
	if caps.Label != "Chief doctor" || len(caps.Actions) != 3 {
		t.Fatalf("unexpected capabilities: %s", string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/roles/janitor", nil, as(domain.RoleRegistration))
	expectError(t, res, data, http.StatusNotFound, "not_found")

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/dashboard", nil, as(domain.RoleRegistration))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: %d %s", res.StatusCode, string(data))
	}
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	const n = 8
	bodies := make([][]byte, n)
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				return
			}
			defer res.Body.Close()
			codes[i] = res.StatusCode
			bodies[i], _ = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if codes[i] != http.StatusOK || len(bodies[i]) == 0 {
			t.Fatalf("request %d: status %d, %d bytes", i, codes[i], len(bodies[i]))
		}
		if !bytes.Equal(bodies[i], bodies[0]) {
			t.Fatalf("request %d served a different document", i)
		}
	}
	var doc map[string]any
	if err := json.Unmarshal(bodies[0], &doc); err != nil || doc["openapi"] == nil {
		t.Fatalf("not an OpenAPI document: %v", err)
	}
}
