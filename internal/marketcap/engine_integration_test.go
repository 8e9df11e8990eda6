//go:build integration

package marketcap

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These run against the licensed market-data database and pin counts
// documented for its snapshot.
func newIntegrationEngine(t *testing.T) *Engine {
	t.Helper()
	url := os.Getenv("FUNSCREENER_STORE_DATABASE_URL")
	if url == "" {
		t.Skip("FUNSCREENER_STORE_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewEngine(pool)
}

func TestIntegration_SwissMegaCaps(t *testing.T) {
	e := newIntegrationEngine(t)

	rows, err := e.Query(context.Background(), Query{AsOf: "2025-05-03", Threshold: 200e3, Country: "CH"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestIntegration_GlobalTrillionClub(t *testing.T) {
	e := newIntegrationEngine(t)

	rows, err := e.Query(context.Background(), Query{AsOf: "2025-05-12", Threshold: 1000e3, Country: GlobalCountry})
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}

func TestIntegration_FuzzyCapturesSeveralDays(t *testing.T) {
	e := newIntegrationEngine(t)

	rows, err := e.Query(context.Background(), Query{AsOf: "2025-05-12", Threshold: 500e3, Country: "US", Fuzzy: true})
	require.NoError(t, err)
	assert.Greater(t, len(rows), 20)

	deduped := Process(rows, nil)
	assert.Less(t, len(deduped), len(rows))
}
