package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseMetrics_TrackQuery(t *testing.T) {
	m := NewDatabaseMetrics("metrics_test_table")
	before := testutil.CollectAndCount(DatabaseQueryLatency)

	done := m.TrackQuery("select")
	time.Sleep(2 * time.Millisecond)
	elapsed := done()

	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	assert.Equal(t, before+1, testutil.CollectAndCount(DatabaseQueryLatency))
}

func TestPasswordChecksCounter(t *testing.T) {
	c := PasswordChecks.WithLabelValues("metrics_test", "rejected")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHTTPMetrics_Singleton(t *testing.T) {
	a := HTTPMetrics("bulletin-api")
	b := HTTPMetrics("bulletin-api")
	assert.Same(t, a, b)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "bulletin-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "test.span")
	span.SetError(errors.New("boom"))
	span.End()
	assert.NotNil(t, ctx)
}
