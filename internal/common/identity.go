package common

import (
	"context"
	"net/http"
	"strings"
)

type userIDKey struct{}

// HeaderUserID is set by the fronting auth proxy; transport authentication
// itself is handled upstream of this service.
const HeaderUserID = "X-User-ID"

// WithUserID stores the caller identity on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID extracts the caller identity from context if present.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Identity lifts the upstream user header into the request context. Requests
// without the header proceed anonymously; percentage and allow-list rollout
// flags then evaluate to disabled for them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := strings.TrimSpace(r.Header.Get(HeaderUserID)); uid != "" {
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		next.ServeHTTP(w, r)
	})
}
