package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FetchesAllResources(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := &memorySource{rows: scenarioRows()}

	raw, err := Load(context.Background(), src)
	require.NoError(t, err)

	assert.Len(t, src.fetched, len(Resources()))
	assert.Len(t, raw.Rows(ResourceAccessOrders), 2)
	assert.Equal(t, 1, raw.Counts()[ResourceFactSales])
	assert.Equal(t, 0, raw.Counts()[Resource("missing")])
}

func TestLoad_SingleFailureAbortsLoad(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := &memorySource{rows: scenarioRows(), failOn: ResourceAccessOrderDetails}

	raw, err := Load(context.Background(), src)

	require.Error(t, err)
	assert.Nil(t, raw, "partial data must not be returned")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "access_Order_Details")
}

func TestLoad_CancelledContext(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, &memorySource{rows: scenarioRows()})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
