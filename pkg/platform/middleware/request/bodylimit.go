package request

import (
	"net/http"
)

// BodyLimit caps request bodies with http.MaxBytesReader. Clock-in uploads
// carry a photo, so the limit is sized from the evidence limit plus form
// overhead rather than the JSON default.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
