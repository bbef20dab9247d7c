package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"ortholine/internal/domain"
	"ortholine/internal/engine"
	"ortholine/internal/engine/auth"
	"ortholine/internal/ledger"
	"ortholine/internal/logging"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Log      logrus.FieldLogger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"illegal_transition"`
	Message string         `json:"message" example:"action approve is not allowed from status completed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"status\":\"completed\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the order workflow API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema/request validation errors are 400 bad_request.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newRequestLogger(log))
	router.Use(newActorMiddleware(basePath, log))
	hcfg := huma.DefaultConfig("Ortholine API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerOrders(group, cfg.Engine)
	registerActions(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)
	registerDashboard(group, cfg.Engine)
	registerRoles(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var pd domain.PermissionDeniedError
	if errors.As(err, &pd) {
		return newAPIError(http.StatusForbidden, "permission_denied", err.Error(), map[string]any{"role": pd.Role, "action": pd.Action})
	}
	var it domain.IllegalTransitionError
	if errors.As(err, &it) {
		return newAPIError(http.StatusConflict, "illegal_transition", err.Error(), map[string]any{"action": it.Action, "status": it.Status})
	}
	var mc domain.MissingCommentError
	if errors.As(err, &mc) {
		return newAPIError(http.StatusBadRequest, "missing_comment", err.Error(), map[string]any{"action": mc.Action})
	}
	var ii domain.InvalidInputError
	if errors.As(err, &ii) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ii.Field, "reason": ii.Reason})
	}
	switch kind := engine.Kind(err); kind {
	case "illegal_transition", "conflict":
		return newAPIError(http.StatusConflict, kind, err.Error(), nil)
	case "not_found":
		return newAPIError(http.StatusNotFound, kind, err.Error(), nil)
	case "permission_denied":
		return newAPIError(http.StatusForbidden, kind, err.Error(), nil)
	case "missing_comment", "bad_request":
		return newAPIError(http.StatusBadRequest, kind, err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// newRequestLogger logs one line per request at Debug.
func newRequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
			next.ServeHTTP(w, r)
		})
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyActorHeaders(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range operations(item) {
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

// applyActorHeaders documents the identity headers on every operation except health.
func applyActorHeaders(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		if route == healthPath {
			continue
		}
		for _, op := range operations(item) {
			op.Parameters = append(op.Parameters,
				&huma.Param{Name: headerActorID, In: "header", Required: true, Schema: &huma.Schema{Type: "string"}},
				&huma.Param{Name: headerActorRole, In: "header", Required: true, Schema: &huma.Schema{Type: "string", Enum: roleEnum()}},
			)
		}
	}
}

func operations(item *huma.PathItem) []*huma.Operation {
	var out []*huma.Operation
	for _, op := range []*huma.Operation{
		item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
	} {
		if op != nil {
			out = append(out, op)
		}
	}
	return out
}

func roleEnum() []any {
	out := make([]any, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		out = append(out, string(r))
	}
	return out
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Ortholine API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Identify with the X-Actor-Id and X-Actor-Role headers.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type orderPath struct {
	OrderID string `path:"order_id"`
}

var standardErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-order",
		Method:        http.MethodPost,
		Path:          "/orders",
		Summary:       "Register order",
		DefaultStatus: http.StatusCreated,
		Errors:        standardErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateOrderRequest `json:"body"`
	}) (*struct {
		Body OrderResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.CreateOrderOptions{
			ProductType: domain.ProductType(input.Body.ProductType),
			Actor:       actor,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Payload != nil {
			raw, err := json.Marshal(input.Body.Payload)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid payload", map[string]any{"error": err.Error()})
			}
			opts.Payload = raw
		}
		o, err := e.CreateOrder(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrderResponse `json:"body"`
		}{Body: orderResponse(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/orders",
		Summary:     "List orders, newest first",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body OrderListResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.ListOrders(ctx, domain.OrderFilter{Status: domain.Status(input.Status)})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrderListResponse `json:"body"`
		}{Body: OrderListResponse{Items: mapOrders(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/orders/{order_id}",
		Summary:     "Get order",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *orderPath) (*struct {
		Body OrderResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		o, err := e.GetOrder(ctx, input.OrderID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrderResponse `json:"body"`
		}{Body: orderResponse(o)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "order-history",
		Method:      http.MethodGet,
		Path:        "/orders/{order_id}/history",
		Summary:     "Workflow history in application order",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *orderPath) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		steps, err := e.History(ctx, input.OrderID)
		if err != nil {
			return nil, handleError(err)
		}
		if steps == nil {
			steps = []domain.WorkflowStep{}
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{Items: steps}}, nil
	})
}

func registerActions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "available-actions",
		Method:      http.MethodGet,
		Path:        "/orders/{order_id}/actions",
		Summary:     "Actions the caller may apply now",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *orderPath) (*struct {
		Body ActionsResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		actions, err := e.AvailableActions(ctx, input.OrderID, actor.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionsResponse `json:"body"`
		}{Body: ActionsResponse{Actions: actionStrings(actions)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-action",
		Method:      http.MethodPost,
		Path:        "/orders/{order_id}/actions",
		Summary:     "Apply workflow action",
		Description: "assign_to_production is answered with 400; use POST /orders/{order_id}/assignments.",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		OrderID string             `path:"order_id"`
		Body    ApplyActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.ApplyAction(ctx, engine.ActionRequest{
			OrderID: input.OrderID,
			Actor:   actor,
			Action:  domain.Action(input.Body.Action),
			Comment: input.Body.Comment,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: ActionResponse{Order: orderResponse(out.Order), Step: out.Step, Notification: out.Notification}}, nil
	})
}

func registerAssignments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "assign-order",
		Method:        http.MethodPost,
		Path:          "/orders/{order_id}/assignments",
		Summary:       "Assign order to a department",
		DefaultStatus: http.StatusCreated,
		Errors:        standardErrors,
	}, func(ctx context.Context, input *struct {
		OrderID string        `path:"order_id"`
		Body    AssignRequest `json:"body"`
	}) (*struct {
		Body AssignResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		out, err := e.Assign(ctx, engine.AssignRequest{
			Request: ledger.Request{
				OrderID:                 input.OrderID,
				Department:              domain.Department(input.Body.Department),
				Priority:                domain.Priority(input.Body.Priority),
				EstimatedCompletionDate: input.Body.EstimatedCompletionDate,
				AssignedBy:              actor,
			},
			Comment: input.Body.Comment,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssignResponse `json:"body"`
		}{Body: AssignResponse{
			Order:        orderResponse(out.Order),
			Step:         out.Step,
			Assignment:   out.Assignment,
			Notification: out.Notification,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/orders/{order_id}/assignments",
		Summary:     "Assignment ledger in insertion order",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *orderPath) (*struct {
		Body AssignmentListResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Assignments(ctx, input.OrderID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.DepartmentAssignment{}
		}
		return &struct {
			Body AssignmentListResponse `json:"body"`
		}{Body: AssignmentListResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-current-assignment",
		Method:      http.MethodPatch,
		Path:        "/orders/{order_id}/assignments/current",
		Summary:     "Progress the current assignment",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		OrderID string                  `path:"order_id"`
		Body    UpdateAssignmentRequest `json:"body"`
	}) (*struct {
		Body domain.DepartmentAssignment `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAssignment(ctx, input.OrderID, domain.AssignmentStatus(input.Body.Status), actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DepartmentAssignment `json:"body"`
		}{Body: a}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "Inbox of the caller's role, newest first",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		Unread bool `query:"unread"`
	}) (*struct {
		Body engine.NotificationList `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.Notifications(ctx, domain.NotificationFilter{RecipientRole: actor.Role, UnreadOnly: input.Unread})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.NotificationList `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-all-notifications",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark the caller's inbox read",
		Errors:      standardErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ReadAllResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.MarkAllRead(ctx, actor.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReadAllResponse `json:"body"`
		}{Body: ReadAllResponse{Updated: n}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark one notification read",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		ID string `path:"notification_id"`
	}) (*struct {
		Body ReadResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		found, err := e.MarkRead(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReadResponse `json:"body"`
		}{Body: ReadResponse{ID: input.ID, Found: found}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-notification",
		Method:      http.MethodDelete,
		Path:        "/notifications/{notification_id}",
		Summary:     "Delete one notification",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		ID string `path:"notification_id"`
	}) (*struct {
		Body ReadResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		found, err := e.DeleteNotification(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReadResponse `json:"body"`
		}{Body: ReadResponse{ID: input.ID, Found: found}}, nil
	})
}

func registerDashboard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Order and inbox summary for the caller's role",
		Errors:      standardErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Dashboard `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.Dashboard(ctx, actor.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Dashboard `json:"body"`
		}{Body: d}, nil
	})
}

func registerRoles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "role-capabilities",
		Method:      http.MethodGet,
		Path:        "/roles/{role}",
		Summary:     "Navigation and module rights of a role",
		Errors:      standardErrors,
	}, func(ctx context.Context, input *struct {
		Role string `path:"role"`
	}) (*struct {
		Body auth.Capabilities `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		caps, err := e.Capabilities(domain.Role(input.Role))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body auth.Capabilities `json:"body"`
		}{Body: caps}, nil
	})
}
