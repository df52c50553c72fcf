// Package tct is the root of the tiered commitment tree module. It holds the
// globals shared by every package.
package tct

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes Prometheus collectors created in the packages. A
// server can register them to expose the metrics.
var PromCollectors []prometheus.Collector
