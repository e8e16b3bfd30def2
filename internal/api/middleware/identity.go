package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/hivewatch/alerts/internal/api/respond"
)

// UserIDHeader carries the caller's user id. It is set by the gateway in
// front of this service and trusted as is.
const UserIDHeader = "internal-userid"

type contextKey string

const userIDKey contextKey = "user_id"

// RequireUser rejects requests without a valid user id header and stores the
// id in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			respond.JSONError(w, respond.ErrAuthenticationRequired)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.JSONError(w, respond.ErrAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID returns a context carrying the caller's user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID returns the caller's user id, or 0 outside RequireUser.
func GetUserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v
	}
	return 0
}
