package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := New()
	r.Request("etherscan", OutcomeOK)
	r.Request("etherscan", OutcomeOK)
	r.Request("etherscan", OutcomeNotFound)
	r.Collected("etherscan", 3)
	r.Collected("arxiv", 0)
	r.Categorized("vulnerability", 15)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("etherscan", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("etherscan", OutcomeNotFound)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.RecordsCollected.WithLabelValues("etherscan")))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.RecordsCategorized.WithLabelValues("vulnerability")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.RecordsCollected))
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	r.Request("x", OutcomeError)
	r.Collected("x", 1)
	r.Categorized("x", 1)
	assert.NoError(t, r.WriteFile("ignored"))
}

func TestRegistry_WriteFile(t *testing.T) {
	r := New()
	r.Collected("manual", 6)

	path := filepath.Join(t.TempDir(), "scresearch.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `scresearch_records_collected_total{source="manual"} 6`)
}
