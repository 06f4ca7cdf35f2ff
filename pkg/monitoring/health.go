package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents the result of a single health check
type HealthCheck struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked time.Time    `json:"last_checked"`
	Duration    string       `json:"duration"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   string        `json:"service"`
	Checks    []HealthCheck `json:"checks"`
}

// HealthChecker interface for health check implementations
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to the HealthChecker interface
type HealthCheckerFunc func(ctx context.Context) error

// Check runs the wrapped function
func (f HealthCheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// HealthManager runs registered health checks on demand
type HealthManager struct {
	serviceName string
	timeout     time.Duration
	mu          sync.RWMutex
	checkers    map[string]HealthChecker
}

// NewHealthManager creates a new health manager
func NewHealthManager(serviceName string) *HealthManager {
	return &HealthManager{
		serviceName: serviceName,
		timeout:     5 * time.Second,
		checkers:    make(map[string]HealthChecker),
	}
}

// Register adds a named health checker
func (m *HealthManager) Register(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

// Report runs all checks and aggregates the result
func (m *HealthManager) Report(ctx context.Context) HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Service:   m.serviceName,
	}

	for name, checker := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		err := checker.Check(checkCtx)
		cancel()

		check := HealthCheck{
			Name:        name,
			Status:      HealthStatusHealthy,
			LastChecked: time.Now().UTC(),
			Duration:    time.Since(start).String(),
		}
		if err != nil {
			check.Status = HealthStatusUnhealthy
			check.Message = err.Error()
			report.Status = HealthStatusUnhealthy
		}
		report.Checks = append(report.Checks, check)
	}

	return report
}

// Handler returns an HTTP handler serving the health report
func (m *HealthManager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := m.Report(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	})
}
