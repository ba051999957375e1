package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httputil"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
)

type ctxKey string

const ownerIDKey ctxKey = "owner_id"

// RequireIdentity resolves the cart owner for the request: the authenticated
// user's ID when a valid bearer token was presented, otherwise the anonymous
// X-Session-ID header. Anonymous owners are namespaced so a session ID can
// never collide with a real user ID. Mount after middleware.OptionalAuth.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner := middleware.UserIDFromContext(ctx)
		if owner == "" {
			if sid := strings.TrimSpace(r.Header.Get("X-Session-ID")); sid != "" {
				owner = "anon:" + sid
			}
		}
		if owner == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNAUTHORIZED",
					Message: "sign in or provide an X-Session-ID header",
				},
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ownerIDKey, owner)))
	})
}

// ContentTypeJSON rejects bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ownerID returns the identity resolved by RequireIdentity.
func ownerID(r *http.Request) string {
	if id, ok := r.Context().Value(ownerIDKey).(string); ok {
		return id
	}
	return ""
}
