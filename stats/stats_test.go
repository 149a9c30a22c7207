package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewProposalMetrics(reg)
	require.NoError(t, err)

	m.MempoolKept.Add(2)
	m.MempoolExcluded.WithLabelValues("decode").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MempoolKept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MempoolExcluded.WithLabelValues("decode")))

	// 同一个 registry 不能注册两次
	_, err = NewProposalMetrics(reg)
	assert.Error(t, err)
}

func TestMetricsWithoutRegistry(t *testing.T) {
	m, err := NewPoolMetrics(nil)
	require.NoError(t, err)
	m.Accepted.Inc()
	m.Pending.Set(3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Accepted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Pending))
}
