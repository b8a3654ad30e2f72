package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// slowRequest is the point after which a finished request is logged at info.
// Rebuilds over long histories are the usual suspects.
const slowRequest = 2 * time.Second

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.WithFields(requestFields(r))
			entry.Tracef("request in [UA: %s]", r.Header.Get("User-Agent"))

			begin := time.Now()
			next.ServeHTTP(w, r)
			took := time.Since(begin)

			if took >= slowRequest {
				entry.Infof("slow request, took %s", took)
				return
			}
			entry.Tracef("request done in %s", took)
		})
	}
}
