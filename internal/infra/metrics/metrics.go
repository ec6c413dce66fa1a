package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session lifecycle
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awaybot_sessions_started_total",
			Help: "Away sessions started",
		},
		[]string{"source"}, // self | admin
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awaybot_sessions_closed_total",
			Help: "Away sessions closed by outcome",
		},
		[]string{"outcome"},
	)

	SessionsCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "awaybot_sessions_cleared_total",
			Help: "Away sessions cleared by an admin without accounting",
		},
	)

	AwayMinutes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "awaybot_away_minutes_total",
			Help: "Minutes spent away across closed sessions",
		},
	)

	LateMinutes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "awaybot_late_minutes_total",
			Help: "Minutes past expected return plus grace",
		},
	)

	Advisories = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awaybot_policy_advisories_total",
			Help: "Non-blocking policy advisories by kind",
		},
		[]string{"kind"}, // clamped | exhausted | will_exceed
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awaybot_store_errors_total",
			Help: "Persistence failures by operation",
		},
		[]string{"op"},
	)

	// Discord side
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "awaybot_command_duration_seconds",
			Help:    "Handler duration by command",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"command"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "awaybot_rate_limited_total",
			Help: "Interactions dropped by the per-user limiter",
		},
	)

	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "awaybot_job_runs_total",
			Help: "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsClosed,
		SessionsCleared,
		AwayMinutes,
		LateMinutes,
		Advisories,
		StoreErrors,
		CommandDuration,
		RateLimited,
		JobRuns,
	)
}

// Handler expone el registry por defecto.
func Handler() http.Handler { return promhttp.Handler() }
