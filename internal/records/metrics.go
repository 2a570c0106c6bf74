package records

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studentdesk_record_mutations_total",
		Help: "Record mutations committed by the store, by action.",
	}, []string{"action"})

	studentsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studentdesk_students",
		Help: "Number of live student records.",
	})
)
