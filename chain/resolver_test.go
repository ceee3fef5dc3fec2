package chain

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/onyxdex/points/logging"
)

type fakeHeaderClient struct {
	calls      int
	timestamps map[uint64]uint64
	head       uint64
}

func (f *fakeHeaderClient) HeaderByNumber(_ context.Context, number *big.Int) (*ethtypes.Header, error) {
	f.calls++
	if number == nil {
		return &ethtypes.Header{Number: new(big.Int).SetUint64(f.head)}, nil
	}
	block := number.Uint64()
	return &ethtypes.Header{
		Number: number,
		Time:   f.timestamps[block],
	}, nil
}

func TestTimestampResolver(t *testing.T) {
	t.Run("Resolved timestamps are cached across resolvers", testTimestampCache)
	t.Run("Latest block comes from the chain head", testLatestBlock)
}

func testTimestampCache(t *testing.T) {
	ctx := context.Background()
	cachePath := filepath.Join(t.TempDir(), "timestamps.csv")
	client := &fakeHeaderClient{timestamps: map[uint64]uint64{100: 1_700_000_000}}

	r, err := NewResolver(logging.NewTestLogger(), NewDefaultConfig(), client, cachePath)
	require.NoError(t, err)

	ts, err := r.Timestamp(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), ts)
	require.Equal(t, 1, client.calls)

	// Second lookup is served from memory.
	ts, err = r.Timestamp(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), ts)
	require.Equal(t, 1, client.calls)

	// A fresh resolver over the same cache file never hits the client.
	r2, err := NewResolver(logging.NewTestLogger(), NewDefaultConfig(), client, cachePath)
	require.NoError(t, err)
	ts, err = r2.Timestamp(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), ts)
	require.Equal(t, 1, client.calls)

	tm, err := r2.Time(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000), tm.Unix())
}

func testLatestBlock(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "timestamps.csv")
	client := &fakeHeaderClient{head: 12345}

	r, err := NewResolver(logging.NewTestLogger(), NewDefaultConfig(), client, cachePath)
	require.NoError(t, err)

	head, err := r.LatestBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(12345), head)
}
