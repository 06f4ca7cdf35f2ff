package monitoring

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latencies per route. The mux
// route template is used as the endpoint label so path parameters do not
// explode cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				endpoint = template
			}
		}

		RecordHTTPRequest(r.Method, endpoint, recorder.status, time.Since(start))
	})
}
