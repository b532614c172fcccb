package transport

import (
	"time"

	"github.com/k1-end/elastic-logger/internal/config"
)

// BulkOptions tune the backend bulk indexers. Zero values pick the client
// library defaults.
type BulkOptions struct {
	FlushInterval       time.Duration
	FlushBytes          int
	NumWorkers          int
	Pipeline            string
	WaitForActiveShards string
}

func BulkOptionsFromConfig(cfg config.TransportConfig) BulkOptions {
	return BulkOptions{
		FlushInterval:       cfg.FlushInterval,
		FlushBytes:          cfg.FlushBytes,
		NumWorkers:          cfg.NumWorkers,
		Pipeline:            cfg.Pipeline,
		WaitForActiveShards: cfg.WaitForActiveShards,
	}
}
