package pricing

import (
	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/logging"
)

const namedLogger = "pricing"

// Config represents the configuration of the mid-price store.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// LookbackBlocks bounds how far back the nearest-prior-block price
	// resolution may search before the lookup is considered failed.
	LookbackBlocks uint64

	// CacheSize bounds the resolved (market, block) lookup cache.
	CacheSize int
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		LookbackBlocks: 1_000_000,
		CacheSize:      4096,
	}
}
