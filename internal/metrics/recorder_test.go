package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	require.NotPanics(t, func() {
		r.ObserveStageDuration("clean", time.Millisecond)
		r.IncRunOutcome(OutcomeAborted)
		r.IncWarnings("discover")
	})
	var _ Recorder = (*PrometheusRecorder)(nil)
}
