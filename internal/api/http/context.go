package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"smy-nav-backend/internal/domain"
)

type actorKey struct{}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the caller the auth middleware stored on the request.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

func actorOf(r *http.Request) domain.Actor {
	a, _ := ActorFromContext(r.Context())
	return a
}

// pathID parses a numeric route variable.
func pathID(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil || v <= 0 {
		return 0, &domain.ValidationError{Message: "Invalid " + name, Fields: map[string]string{name: "invalid"}}
	}
	return int32(v), nil
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
