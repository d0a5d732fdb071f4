package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(AttemptsTotal.WithLabelValues("failure"))
	AttemptsTotal.WithLabelValues("failure").Inc()
	AttemptsTotal.WithLabelValues("failure").Inc()

	if got := testutil.ToFloat64(AttemptsTotal.WithLabelValues("failure")); got != before+2 {
		t.Errorf("failure attempts = %v, want %v", got, before+2)
	}

	TargetsTotal.WithLabelValues("succeeded").Inc()
	if got := testutil.ToFloat64(TargetsTotal.WithLabelValues("succeeded")); got < 1 {
		t.Errorf("succeeded targets = %v, want >= 1", got)
	}
}
