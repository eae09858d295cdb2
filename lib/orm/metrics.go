package orm

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// observe records one collection operation
func observe(collection, op string, start time.Time, err error) {
	labels := fmt.Sprintf(`{collection=%q,op=%q}`, collection, op)
	metrics.GetOrCreateCounter("kvorm_operations_total" + labels).Inc()
	if err != nil {
		metrics.GetOrCreateCounter("kvorm_operation_errors_total" + labels).Inc()
	}
	metrics.GetOrCreateHistogram("kvorm_operation_duration_seconds" + labels).UpdateDuration(start)
}
