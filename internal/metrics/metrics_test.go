package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(analyzerOutcomes.WithLabelValues("default"))
	AnalyzerOutcome(true)
	assert.Equal(t, before+1, testutil.ToFloat64(analyzerOutcomes.WithLabelValues("default")))

	beforeRows := testutil.ToFloat64(transactionsInserted)
	TransactionsInserted(3)
	assert.Equal(t, beforeRows+3, testutil.ToFloat64(transactionsInserted))

	beforePage := testutil.ToFloat64(dashboardsRendered.WithLabelValues("error_page"))
	DashboardRendered(false)
	assert.Equal(t, beforePage+1, testutil.ToFloat64(dashboardsRendered.WithLabelValues("error_page")))
}
