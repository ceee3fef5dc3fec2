package totals

import (
	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/logging"
)

const namedLogger = "totals"

// Config represents the configuration of the grand totals aggregator.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// ReferralCutoffBlock: only referrals recorded strictly before this
	// block are honored.
	ReferralCutoffBlock uint64
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
