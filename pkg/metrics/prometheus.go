package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/borgmon/meetalert/pkg/logging"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	alertsStarted   *prometheus.CounterVec
	alertsEnded     *prometheus.CounterVec
	refreshesTotal  *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	agendaMeetings  prometheus.Gauge
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer, log logging.Logger) *PrometheusSink {
	s := &PrometheusSink{
		alertsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetalert_alerts_started_total",
			Help: "Alert sessions opened, by trigger.",
		}, []string{"trigger"}),
		alertsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetalert_alerts_ended_total",
			Help: "Alert sessions closed, by reason.",
		}, []string{"reason"}),
		refreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetalert_refreshes_total",
			Help: "Calendar refreshes, by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetalert_refresh_duration_seconds",
			Help:    "Time spent fetching calendar events.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		agendaMeetings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meetalert_agenda_meetings",
			Help: "Meetings remaining today in the published agenda.",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.alertsStarted, s.alertsEnded, s.refreshesTotal, s.refreshDuration, s.agendaMeetings,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			log.Warn("metrics: failed to register collector", logging.Err(err))
		}
	}
	return s
}

func (s *PrometheusSink) AlertStarted(trigger string) {
	s.alertsStarted.WithLabelValues(trigger).Inc()
}

func (s *PrometheusSink) AlertEnded(reason string) {
	s.alertsEnded.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) RefreshCompleted(result string, duration time.Duration) {
	s.refreshesTotal.WithLabelValues(result).Inc()
	if result != RefreshDiscarded {
		s.refreshDuration.Observe(duration.Seconds())
	}
}

func (s *PrometheusSink) AgendaSizeUpdate(meetings int) {
	s.agendaMeetings.Set(float64(meetings))
}

// Handler returns the /metrics handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}
