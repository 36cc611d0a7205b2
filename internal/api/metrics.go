package api

import (
	"encoding/json"
	"net/http"

	"github.com/heysubinoy/keyvaluestore/internal/store"
	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// MetricsHandler returns current store metrics as JSON.
// Only registered when the server was initialized with an InstrumentedStore,
// and gated by the read token.
func MetricsHandler(instrumentedStore *store.InstrumentedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !instrumentedStore.Authorized(kv.OpRead, bearerToken(r)) {
			unauthorized(w)
			return
		}

		metrics := instrumentedStore.GetMetrics()

		response := map[string]interface{}{
			"keys": metrics.Keys,
			"operations": map[string]uint64{
				"get":        metrics.GetCount,
				"get_misses": metrics.GetMisses,
				"put":        metrics.PutCount,
			},
			"denied": map[string]uint64{
				"read":  metrics.ReadDenied,
				"write": metrics.WriteDenied,
			},
			"avg_latency": map[string]string{
				"get": metrics.GetAvgLatency.String(),
				"put": metrics.PutAvgLatency.String(),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// HealthHandler reports liveness. It needs no token.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
