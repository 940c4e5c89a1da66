package health

import (
	"encoding/json"
	"net/http"
)

type statusResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Handler serves the aggregate health status as JSON, responding 200 for
// healthy/degraded and 503 for unhealthy.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall, results := c.CheckAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(statusResponse{Status: string(overall), Checks: results})
	}
}
