package chain

import (
	"time"

	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/logging"
)

const namedLogger = "chain"

// Config represents the configuration of the block timestamp resolver.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// RequestTimeout bounds each individual RPC request; retries are
	// governed by the caller's context.
	RequestTimeout encoding.Duration `long:"request-timeout"`
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		RequestTimeout: encoding.Duration{Duration: 15 * time.Second},
	}
}
