package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webhook-dispatcher/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct{ depth, inFlight int }

func (q fakeQueue) QueueDepth() int { return q.depth }
func (q fakeQueue) InFlight() int   { return q.inFlight }

func TestDeliveryMetrics_ObserveDelivery(t *testing.T) {
	m := NewDeliveryMetrics(nil)

	m.ObserveDelivery(domain.DeliveryOutcomeSuccess, 1, 120*time.Millisecond)
	m.ObserveDelivery(domain.DeliveryOutcomeSuccess, 2, 2*time.Second)
	m.ObserveDelivery(domain.DeliveryOutcomeError, 3, 6*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.deliveries.WithLabelValues("warning")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestDeliveryMetrics_QueueGauges(t *testing.T) {
	m := NewDeliveryMetrics(fakeQueue{depth: 7, inFlight: 3})

	expected := `
# HELP webhook_dispatch_queue_depth Deliveries waiting for a free worker.
# TYPE webhook_dispatch_queue_depth gauge
webhook_dispatch_queue_depth 7
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "webhook_dispatch_queue_depth"))

	expected = `
# HELP webhook_deliveries_in_flight Deliveries currently being attempted or backing off.
# TYPE webhook_deliveries_in_flight gauge
webhook_deliveries_in_flight 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "webhook_deliveries_in_flight"))
}

func TestDeliveryMetrics_Handler(t *testing.T) {
	m := NewDeliveryMetrics(fakeQueue{})
	m.ObserveDelivery(domain.DeliveryOutcomeWarning, 1, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `webhook_deliveries_total{outcome="warning"} 1`)
	assert.Contains(t, string(body), "webhook_delivery_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
