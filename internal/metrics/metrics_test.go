package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwiceIsHarmless(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveWindowFetchNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(windowFetchesTotal.WithLabelValues("ticket", "load", OutcomeSuccess))
	ObserveWindowFetch("ticket", "load", -time.Second, "weird")
	after := testutil.ToFloat64(windowFetchesTotal.WithLabelValues("ticket", "load", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestSetWindowSize(t *testing.T) {
	SetWindowSize("purchase", 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(windowRecords.WithLabelValues("purchase")))
}
