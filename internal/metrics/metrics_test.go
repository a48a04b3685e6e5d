package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPayment(t *testing.T) {
	PaymentsCreatedTotal.Reset()

	RecordPayment("card")
	RecordPayment("card")
	RecordPayment("sbp")

	assert.Equal(t, float64(2), testutil.ToFloat64(PaymentsCreatedTotal.WithLabelValues("card")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsCreatedTotal.WithLabelValues("sbp")))
}

func TestRecordCollect(t *testing.T) {
	CollectsCreatedTotal.Reset()

	RecordCollect("birthday")

	assert.Equal(t, float64(1), testutil.ToFloat64(CollectsCreatedTotal.WithLabelValues("birthday")))
}

func TestRecordCacheLookup(t *testing.T) {
	CacheRequestsTotal.Reset()

	RecordCacheLookup(CacheHit)
	RecordCacheLookup(CacheMiss)
	RecordCacheLookup(CacheMiss)

	assert.Equal(t, float64(1), testutil.ToFloat64(CacheRequestsTotal.WithLabelValues(CacheHit)))
	assert.Equal(t, float64(2), testutil.ToFloat64(CacheRequestsTotal.WithLabelValues(CacheMiss)))
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("payment_received", NotificationQueued)
	RecordNotification("payment_received", NotificationFailed)

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("payment_received", NotificationQueued)))
	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("payment_received", NotificationFailed)))
}

func TestQueueLengthGauge(t *testing.T) {
	NotificationQueueLength.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(NotificationQueueLength))
	NotificationQueueLength.Dec()
	assert.Equal(t, float64(2), testutil.ToFloat64(NotificationQueueLength))
}

func TestMetricsEndpoint(t *testing.T) {
	RecordCollect("wedding")

	ts := httptest.NewServer(NewServer(":0").Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "collects_created_total"))
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Serve(ctx, NewServer("127.0.0.1:0")))
}
