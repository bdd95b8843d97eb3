package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile dumps all metrics from the gatherer to path in the
// Prometheus text exposition format. The write goes through a temporary
// file renamed into place, so a node_exporter textfile collector never
// observes a partially written file. A nil gatherer uses the default
// registry.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
