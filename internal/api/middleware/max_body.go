package middleware

import (
	"net/http"

	"github.com/reposift/reposift/internal/api"
	"github.com/reposift/reposift/internal/domain"
)

// BodyLimit caps request bodies at limit bytes. Requests that declare a
// larger Content-Length are rejected up front with 413; bodies without a
// declared length are cut off by MaxBytesReader once they cross the cap.
// A limit of zero or less disables the middleware.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				if r.ContentLength > limit {
					api.Error(w, http.StatusRequestEntityTooLarge, domain.ErrCodeInvalidQuery, "request body too large")
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
