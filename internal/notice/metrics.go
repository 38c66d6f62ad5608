package notice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notice_analyses_total",
		Help: "Completed notice analyses by terminal path",
	}, []string{"path"})

	aiFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notice_ai_failures_total",
		Help: "Inference extraction failures by kind and transport class",
	}, []string{"kind", "class"})

	aiCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notice_ai_call_duration_seconds",
		Help:    "Latency of outbound inference calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12, 16, 20},
	}, []string{"provider"})
)
