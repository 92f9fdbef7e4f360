package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projects",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Total number of import operations broken down by mode and result.",
	}, []string{"mode", "result"})

	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projects",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Total number of confirmed rows broken down by outcome.",
	}, []string{"outcome"})

	importCorrections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projects",
		Subsystem: "import",
		Name:      "corrections_total",
		Help:      "Total number of automatic value corrections broken down by field.",
	}, []string{"field"})

	importUnmatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projects",
		Subsystem: "import",
		Name:      "unmatched_metadata_total",
		Help:      "Total number of metadata values that matched no reference entity, by class.",
	}, []string{"class"})
)

const (
	modePreview = "preview"
	modeCheck   = "check"
	modeConfirm = "confirm"
)

func recordRun(mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	importRuns.WithLabelValues(mode, result).Inc()
}

func recordRow(outcome string) {
	if outcome == "" {
		outcome = "other"
	}
	importRows.WithLabelValues(outcome).Inc()
}

func recordCorrection(field string) {
	importCorrections.WithLabelValues(field).Inc()
}

func recordUnmatched(class string) {
	importUnmatched.WithLabelValues(class).Inc()
}
