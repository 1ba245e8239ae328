package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcribo"

var (
	// Jobs counts finished pipeline runs by strategy and outcome
	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Finished transcription jobs",
	}, []string{"strategy", "outcome"})

	// Segments counts transcribed segments by result
	Segments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_total",
		Help:      "Transcribed segments",
	}, []string{"result"})

	// UnitAttempts counts calls to the speech-to-text service
	UnitAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unit_attempts_total",
		Help:      "Calls to speech-to-text service",
	}, []string{"result"})

	// Downloads counts source downloads by result
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_total",
		Help:      "Source media downloads",
	}, []string{"result"})
)

// Result maps error to a label value
func Result(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
