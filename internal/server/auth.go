package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"ortholine/internal/domain"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

type actorKey struct{}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func actorFromContext(ctx context.Context) (domain.Actor, huma.StatusError) {
	if a, ok := ctx.Value(actorKey{}).(domain.Actor); ok && a.ID != "" {
		return a, nil
	}
	return domain.Actor{}, newAPIError(http.StatusUnauthorized, "unauthorized", "actor headers required", nil)
}

// newActorMiddleware identifies the caller from X-Actor-Id and X-Actor-Role.
// Session management lives in front of this service; the headers are trusted.
func newActorMiddleware(basePath string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	open := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "openapi.json"): true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if open[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			id := strings.TrimSpace(req.Header.Get(headerActorID))
			role := domain.Role(strings.TrimSpace(req.Header.Get(headerActorRole)))
			if id == "" || role == "" {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "actor headers required", nil))
				return
			}
			if !role.Valid() {
				log.WithFields(logrus.Fields{"actor_id": id, "role": role}).Warn("unknown role in request headers")
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "unknown role", map[string]any{"role": role}))
				return
			}
			ctx := withActor(req.Context(), domain.Actor{ID: id, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
