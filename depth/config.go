package depth

import (
	"github.com/onyxdex/points/config/encoding"
	"github.com/onyxdex/points/logging"
)

// namedLogger is the identifier for package and should ideally match the
// package name; it is emitted as a hierarchical label, e.g.
// 'points.depth'.
const namedLogger = "depth"

// Config represents the configuration of the epoch depth computer.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific
// configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
