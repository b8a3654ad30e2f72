package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/2beens/trainingload/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// PanicRecovery turns a handler panic into a 500. http.ErrAbortHandler is
// passed through untouched.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				log.WithFields(requestFields(req)).Errorf("handler panic: %v\n%s", recovered, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				http.Error(w, "error, internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, req)
		})
	}
}

// requestFields picks what identifies a request in the logs: the route name,
// and the athlete it is about when the path carries one.
func requestFields(req *http.Request) log.Fields {
	fields := log.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	}
	if route := mux.CurrentRoute(req); route != nil && route.GetName() != "" {
		fields["route"] = route.GetName()
	}
	if athleteID, ok := mux.Vars(req)["athleteId"]; ok {
		fields["athleteId"] = athleteID
	}
	return fields
}
