package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "cv_evaluator"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder counts session operations. A nil Recorder is valid and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	logoutSent *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session operations by name and result.",
		}, []string{"operation", "result"}),
		logoutSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logout_notifications_total",
			Help:      "Best-effort backend logout notifications by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(r.operations, r.logoutSent)
	return r
}

// Observe records the outcome of an operation.
func (r *Recorder) Observe(operation string, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveLogoutNotification records the outcome of a backend logout notification.
func (r *Recorder) ObserveLogoutNotification(err error) {
	if r == nil {
		return
	}
	r.logoutSent.WithLabelValues(result(err)).Inc()
}

// Gatherer exposes the registry, e.g. for promhttp or tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
