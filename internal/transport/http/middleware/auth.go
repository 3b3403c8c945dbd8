package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/presence-service/internal/auth"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// AuthMiddleware guards the REST endpoints with the same authorizer
// the websocket handshake uses, taking the token from the Bearer
// header.
func AuthMiddleware(a auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
				return
			}

			userID, ok := a.Authorize(r.Context(), strings.TrimSpace(header[7:]))
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}
