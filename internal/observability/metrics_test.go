package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDomainCountersAccumulate(t *testing.T) {
	RegisterMetrics()

	before := testutil.ToFloat64(gradingsTotal.WithLabelValues("manual", "true"))
	RecordGrading("manual", true)
	require.Equal(t, before+1, testutil.ToFloat64(gradingsTotal.WithLabelValues("manual", "true")))

	xpBefore := testutil.ToFloat64(xpAwardedTotal)
	levelsBefore := testutil.ToFloat64(levelUpsTotal)
	RecordXP(250, 3)
	RecordXP(0, 0)
	require.Equal(t, xpBefore+250, testutil.ToFloat64(xpAwardedTotal))
	require.Equal(t, levelsBefore+3, testutil.ToFloat64(levelUpsTotal))

	RecordTransition("quiz", "graded")
	require.GreaterOrEqual(t, testutil.ToFloat64(submissionTransitionsTotal.WithLabelValues("quiz", "graded")), 1.0)
}
