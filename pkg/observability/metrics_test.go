package observability_test

import (
	"testing"
	"time"

	"github.com/aretw0/scorebridge/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.ObserveInitialization(observability.OutcomeOK, time.Second)
	m.ObserveEvaluation(observability.OutcomeOK, 10*time.Millisecond)
	m.ObserveEvaluation("eval_timeout", time.Minute)
	done := m.EvaluationStarted()

	families, err := reg.Gather()
	require.NoError(t, err)

	series := map[string]int{}
	for _, f := range families {
		series[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, 2, series["scorebridge_evaluations_total"], "one series per outcome")
	assert.Equal(t, 1, series["scorebridge_initializations_total"])
	assert.Equal(t, 1, series["scorebridge_evaluations_inflight"])
	done()
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.ObserveInitialization("ok", time.Second)
		m.ObserveEvaluation("ok", time.Second)
		m.EvaluationStarted()()
	})
}
