// Package datadir pins the on-disk layout of the append-only data logs
// and computed outputs under a single root directory.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/onyxdex/points/types"
)

// Layout resolves file locations under the data root.
type Layout struct {
	Root string
}

func New(root string) Layout {
	return Layout{Root: root}
}

// BooksFile is the append-only `block,book` snapshot log for a market.
func (l Layout) BooksFile(key string) string {
	return filepath.Join(l.Root, "books", key+".csv")
}

// FillsFile is the append-only `block,fills` trade log for a market.
func (l Layout) FillsFile(key string) string {
	return filepath.Join(l.Root, "fills", key+".csv")
}

// PricesFile is the `block,price` mid-price series for a market.
func (l Layout) PricesFile(key string) string {
	return filepath.Join(l.Root, "prices", key+".csv")
}

// MakerVolumeFile is the per-epoch aggregated maker volume for a market.
func (l Layout) MakerVolumeFile(key string, epoch types.Epoch) string {
	return filepath.Join(l.Root, "volume", "maker", key, epochFile(epoch))
}

// TakerVolumeFile is the per-epoch aggregated taker volume for a market.
func (l Layout) TakerVolumeFile(key string, epoch types.Epoch) string {
	return filepath.Join(l.Root, "volume", "taker", key, epochFile(epoch))
}

// DepthFile is the computed per-(market, epoch) depth output.
func (l Layout) DepthFile(key string, epoch types.Epoch) string {
	return filepath.Join(l.Root, "depth", key, epochFile(epoch))
}

// GrandTotalsFile is the computed per-epoch ranked distribution.
func (l Layout) GrandTotalsFile(epoch types.Epoch) string {
	return filepath.Join(l.Root, "grand_totals", epochFile(epoch))
}

// ReferralsFile is the persisted referral feed.
func (l Layout) ReferralsFile() string {
	return filepath.Join(l.Root, "referrals.json")
}

// NFTBoostFile is the optional per-epoch `address,boost` holder feed.
func (l Layout) NFTBoostFile(epoch types.Epoch) string {
	return filepath.Join(l.Root, "nft_boosts", epochFile(epoch))
}

// TimestampsFile is the block timestamp cache.
func (l Layout) TimestampsFile() string {
	return filepath.Join(l.Root, "timestamps.csv")
}

// EnsureOutputDirs creates the directories computed files are written
// into for the given markets.
func (l Layout) EnsureOutputDirs(markets []types.Market) error {
	dirs := []string{filepath.Join(l.Root, "grand_totals")}
	for _, m := range markets {
		dirs = append(dirs,
			filepath.Join(l.Root, "depth", m.Key),
			filepath.Join(l.Root, "volume", "maker", m.Key),
			filepath.Join(l.Root, "volume", "taker", m.Key),
		)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func epochFile(epoch types.Epoch) string {
	return fmt.Sprintf("%d-%d.csv", epoch.Start, epoch.End)
}
