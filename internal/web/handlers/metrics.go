package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recognitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendease_recognitions_total",
		Help: "Face recognition attempts by outcome.",
	}, []string{"result"})

	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendease_scans_total",
		Help: "Attendance scans recorded by action.",
	}, []string{"action", "already_done"})

	recognitionDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendease_recognition_distance",
		Help:    "Cosine distance of accepted matches.",
		Buckets: prometheus.LinearBuckets(0, 0.05, 10),
	})
)
