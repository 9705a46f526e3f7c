package client

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordFrameReceived("message")
	m.RecordFrameReceived("message")
	m.RecordFrameReceived("list")
	m.RecordDecodeError("join_room")
	m.RecordNotification(NotifyChatPreview)
	m.RecordChatSent()
	m.RecordSendFailure()
	m.RecordConnectionState(StateOpen)
	m.RecordBytesSent(10)
	m.RecordBytesReceived(25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("list")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors.WithLabelValues("join_room")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures))
	assert.Equal(t, float64(StateOpen), testutil.ToFloat64(m.connectionState))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytesSent))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.bytesReceived))

	family := findFamily(t, m, "roomsync_notifications_pushed_total")
	require.Len(t, family.GetMetric(), 1)
	label := family.GetMetric()[0].GetLabel()[0]
	assert.Equal(t, "kind", label.GetName())
	assert.Equal(t, "chat-preview", label.GetValue())
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFrameReceived("message")
		m.RecordDecodeError("message")
		m.RecordNotification(NotifyInfo)
		m.RecordChatSent()
		m.RecordSendFailure()
		m.RecordConnectionState(StateClosed)
		m.RecordBytesSent(1)
		m.RecordBytesReceived(1)
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordChatSent()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "roomsync_chats_sent_total 1")
}

func TestMetricsSeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordChatSent()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.chatsSent))
}
