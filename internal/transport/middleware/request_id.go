package middleware

import (
	"net/http"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/pkg/ctxutil"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-Id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := ctxutil.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
