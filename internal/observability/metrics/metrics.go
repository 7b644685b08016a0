package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "dohani"

// WorkflowMetrics exposes counters/histograms for intake, status and notification flows.
type WorkflowMetrics struct {
	intakeTotal          *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	notificationDuration *prometheus.HistogramVec
	transitionsTotal     *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		intakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_requests_total",
			Help:      "Intake workflow runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification send attempts by template and status",
		}, []string{"template", "status"}),
		notificationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Latency of notification send attempts",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"template"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Appointment status change requests by from/to status and outcome",
		}, []string{"from", "to", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.intakeTotal, m.notificationsTotal, m.notificationDuration, m.transitionsTotal)
	return m
}

func (m *WorkflowMetrics) ObserveIntake(kind, outcome string) {
	if m == nil {
		return
	}
	m.intakeTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveNotification satisfies notify.Observer.
func (m *WorkflowMetrics) ObserveNotification(template, status string, seconds float64) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(template, status).Inc()
	m.notificationDuration.WithLabelValues(template).Observe(seconds)
}

func (m *WorkflowMetrics) ObserveTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, outcome).Inc()
}

// Summary is a point-in-time rollup of the workflow counters for the admin dashboard.
type Summary struct {
	Intake        map[string]map[string]int64 `json:"intake"`
	Notifications map[string]int64            `json:"notifications"`
	Transitions   map[string]int64            `json:"transitions"`
}

// Summarize reads the workflow counters back out of a gatherer.
func Summarize(gatherer prometheus.Gatherer) Summary {
	out := Summary{
		Intake:        map[string]map[string]int64{},
		Notifications: map[string]int64{},
		Transitions:   map[string]int64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case namespace + "_intake_requests_total":
			for _, metric := range mf.Metric {
				kind, outcome := labelValue(metric, "kind"), labelValue(metric, "outcome")
				if out.Intake[kind] == nil {
					out.Intake[kind] = map[string]int64{}
				}
				out.Intake[kind][outcome] += counterValue(metric)
			}
		case namespace + "_notifications_total":
			for _, metric := range mf.Metric {
				out.Notifications[labelValue(metric, "status")] += counterValue(metric)
			}
		case namespace + "_status_transitions_total":
			for _, metric := range mf.Metric {
				out.Transitions[labelValue(metric, "outcome")] += counterValue(metric)
			}
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	if metric == nil {
		return ""
	}
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func counterValue(metric *dto.Metric) int64 {
	if metric == nil || metric.GetCounter() == nil {
		return 0
	}
	return int64(metric.GetCounter().GetValue())
}
