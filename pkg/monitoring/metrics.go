package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Chaincode metrics
	chaincodeTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaincode_transactions_total",
			Help: "Total number of chaincode transactions submitted or evaluated",
		},
		[]string{"chaincode", "function", "status"},
	)

	chaincodeTransactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaincode_transaction_duration_seconds",
			Help:    "Duration of chaincode transactions in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"chaincode", "function"},
	)

	// Registry lifecycle metrics
	prescriptionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prescriptions_created_total",
			Help: "Total number of prescriptions created",
		},
	)

	prescriptionsDispensedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prescriptions_dispensed_total",
			Help: "Total number of prescriptions dispensed",
		},
	)

	prescriptionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prescriptions_cancelled_total",
			Help: "Total number of prescriptions cancelled",
		},
	)

	tamperAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tamper_alerts_total",
			Help: "Total number of hash-mismatch rejections observed",
		},
		[]string{"code"},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		chaincodeTransactionsTotal,
		chaincodeTransactionDuration,
		prescriptionsCreatedTotal,
		prescriptionsDispensedTotal,
		prescriptionsCancelledTotal,
		tamperAlertsTotal,
		authAttemptsTotal,
	)
}

// RecordHTTPRequest records an HTTP request observation
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordChaincodeTransaction records a chaincode transaction observation
func RecordChaincodeTransaction(chaincode, function, status string, duration time.Duration) {
	chaincodeTransactionsTotal.WithLabelValues(chaincode, function, status).Inc()
	chaincodeTransactionDuration.WithLabelValues(chaincode, function).Observe(duration.Seconds())
}

// RecordPrescriptionCreated increments the creation counter
func RecordPrescriptionCreated() {
	prescriptionsCreatedTotal.Inc()
}

// RecordPrescriptionDispensed increments the dispensation counter
func RecordPrescriptionDispensed() {
	prescriptionsDispensedTotal.Inc()
}

// RecordPrescriptionCancelled increments the cancellation counter
func RecordPrescriptionCancelled() {
	prescriptionsCancelledTotal.Inc()
}

// RecordTamperAlert increments the tamper alert counter for a mismatch code
func RecordTamperAlert(code string) {
	tamperAlertsTotal.WithLabelValues(code).Inc()
}

// RecordAuthAttempt records an authentication attempt outcome
func RecordAuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// MetricsHandler returns the Prometheus scrape handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
