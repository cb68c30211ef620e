package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studytrack"

var (
	// ActivityLogged counts accepted activity logs by kind ("topic" or "manual").
	ActivityLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_logged_total",
		Help:      "Activity logs recorded, by kind.",
	}, []string{"kind"})

	ActivityMinutes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_minutes_total",
		Help:      "Minutes of study logged, by kind.",
	}, []string{"kind"})

	AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "achievements_unlocked_total",
		Help:      "Achievements unlocked, by requirement type.",
	}, []string{"requirement"})

	StreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "streak_transitions_total",
		Help:      "Streak engine outcomes per recorded activity.",
	}, []string{"transition"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
