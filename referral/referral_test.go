package referral

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onyxdex/points/types"
)

const feed = `[{"referrer":"R","referee":"E","block_referred":500}]`

func TestReferralFeed(t *testing.T) {
	t.Run("Loading a persisted feed", testLoadFeed)
	t.Run("Fetching persists the feed and retries transient failures", testFetchFeed)
}

func testLoadFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "referrals.json")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))

	refs, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []types.Referral{
		{Referrer: "R", Referee: "E", BlockReferred: 500},
	}, refs)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func testFetchFeed(t *testing.T) {
	// First request fails, the retry succeeds.
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "referrals.json")
	refs, err := Fetch(context.Background(), srv.URL, path)
	require.NoError(t, err)
	require.Equal(t, []types.Referral{
		{Referrer: "R", Referee: "E", BlockReferred: 500},
	}, refs)
	require.GreaterOrEqual(t, requests, 2)

	persisted, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, feed, string(persisted))

	// The persisted copy is loadable as-is.
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, refs, loaded)
}
