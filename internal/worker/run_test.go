package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spiralover/mailer-server/internal/metrics"
	"github.com/spiralover/mailer-server/internal/queue"
	"github.com/stretchr/testify/assert"
)

type fakeLener struct {
	depths map[string]int64
}

func (f *fakeLener) Len(_ context.Context, q string) (int64, error) {
	n, ok := f.depths[q]
	if !ok {
		return 0, errors.New("connection refused")
	}
	return n, nil
}

func TestSampleQueueDepthsSetsGauge(t *testing.T) {
	names := queue.Names{
		Awaiting:   "depth.awaiting",
		Processing: "depth.processing",
		Retrying:   "depth.retrying",
		Success:    "depth.success",
		Failure:    "depth.failure",
	}
	l := &fakeLener{depths: map[string]int64{
		"depth.awaiting":   3,
		"depth.processing": 2,
		"depth.retrying":   0,
		"depth.success":    1,
		"depth.failure":    4,
	}}

	sampleQueueDepths(context.Background(), l, names)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.awaiting")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.processing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.retrying")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.failure")))
}

func TestSampleQueueDepthsKeepsValueWhenBackendDown(t *testing.T) {
	names := queue.Names{Awaiting: "depth.flaky"}
	l := &fakeLener{depths: map[string]int64{"depth.flaky": 7}}

	sampleQueueDepths(context.Background(), l, names)
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.flaky")))

	l.depths = map[string]int64{}
	sampleQueueDepths(context.Background(), l, names)
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.QueueDepth.WithLabelValues("depth.flaky")))
}
