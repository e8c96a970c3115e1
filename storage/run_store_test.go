package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-analyzer/models"
	"networth-analyzer/utils"
)

// Requires a reachable PostgreSQL, e.g.
// TEST_POSTGRES_DSN="host=localhost user=networth password=networth123 dbname=networth_db sslmode=disable"
func TestRunStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	retry := &utils.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, Logger: utils.Discard()}
	rs, err := NewRunStore(ctx, dsn, retry)
	require.NoError(t, err)
	defer rs.Close()

	source := "roundtrip-" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, rs.Record(ctx, &models.Summary{
		Source: source, Found: true, RichestName: "Bob", RichestNetWorth: 120,
		EmailMissing: 2, PhoneMissing: 1, RowsRead: 3, Unparseable: 1, GeneratedAt: time.Now(),
	}))

	runs, err := rs.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, source, runs[0].Source)
	assert.Equal(t, "Bob", runs[0].RichestName)
	assert.Equal(t, 120.0, runs[0].RichestNetWorth)
	assert.True(t, runs[0].Found)
	assert.Equal(t, 2, runs[0].EmailMissing)
}
