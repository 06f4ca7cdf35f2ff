package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with registry-specific helpers
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithComponent creates a new logger entry with a component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithRequestID creates a new logger entry with a request ID field
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Logger.WithField("request_id", requestID)
}

// Audit logs registry state transitions with structured format
func (l *Logger) Audit(caller, action, resource string, success bool, details map[string]interface{}) {
	entry := l.Logger.WithFields(logrus.Fields{
		"audit":    true,
		"caller":   caller,
		"action":   action,
		"resource": resource,
		"success":  success,
		"details":  details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}

// Security logs authorization failures and other security-relevant events
func (l *Logger) Security(event string, caller string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"security": true,
		"event":    event,
		"caller":   caller,
		"details":  details,
	}).Warn("Security event")
}

// TamperAlert logs hash-mismatch rejections. These indicate possible
// tampering of off-ledger metadata and are monitored separately from
// ordinary validation failures.
func (l *Logger) TamperAlert(caller string, prescriptionID uint64, code string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"security":        true,
		"tamper_alert":    true,
		"caller":          caller,
		"prescription_id": prescriptionID,
		"code":            code,
		"details":         details,
	}).Error("Possible tampering detected")
}
