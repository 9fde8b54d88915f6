package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Normalization metrics
	ActivitiesNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_activities_normalized_total",
			Help: "Total number of raw activity payloads normalized",
		},
	)

	ActivitiesDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_activities_degraded_total",
			Help: "Total number of unresolvable payloads degraded to empty activities",
		},
	)

	LapsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_laps_dropped_total",
			Help: "Total number of unresolvable lap entries dropped during normalization",
		},
	)

	// Gathering metrics
	GatheringsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_gatherings_started_total",
			Help: "Total number of gathering operations started",
		},
		[]string{"scope"},
	)

	GatheringsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_gatherings_completed_total",
			Help: "Total number of gathering operations completed",
		},
		[]string{"scope", "status"},
	)

	GatheringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pace42_gathering_duration_seconds",
			Help:    "Gathering operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	CorrectiveRefetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_corrective_refetches_total",
			Help: "Total number of corrective splits re-fetches",
		},
	)

	ActivitiesWithWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_activities_with_warnings_total",
			Help: "Total number of activities kept incomplete after correction",
		},
	)

	// Upstream tool-call metrics
	SourceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_source_calls_total",
			Help: "Total number of upstream tool calls",
		},
		[]string{"tool", "status"},
	)

	SourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pace42_source_call_duration_seconds",
			Help:    "Upstream tool-call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// Planner metrics
	PlannerDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_planner_decisions_total",
			Help: "Total number of planner decisions by final action",
		},
		[]string{"action"},
	)

	PlannerParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_planner_parse_failures_total",
			Help: "Total number of model responses the planner failed to parse",
		},
	)

	PlannerOverrides = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_planner_overrides_total",
			Help: "Total number of deterministic override firings by rule",
		},
		[]string{"rule"},
	)

	// LLM metrics
	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pace42_llm_requests_total",
			Help: "Total number of language model requests",
		},
		[]string{"status"},
	)

	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pace42_llm_request_duration_seconds",
			Help:    "Language model request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_sessions_created_total",
			Help: "Total number of conversation sessions created",
		},
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_session_cache_hits_total",
			Help: "Total number of local session cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_session_cache_misses_total",
			Help: "Total number of local session cache misses",
		},
	)

	SessionCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pace42_session_cache_evictions_total",
			Help: "Total number of local session cache evictions",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pace42_session_cache_size",
			Help: "Number of sessions in the local cache",
		},
	)

	// Source registry metrics
	SourceClientsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pace42_source_clients_active",
			Help: "Number of per-user upstream clients currently cached",
		},
	)
)
