package rating

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cattlegrid_ratings_submitted_total",
		Help: "Committed rating submissions by outcome (created or updated)",
	},
	[]string{"outcome"},
)
