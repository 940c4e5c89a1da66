// Package metrics exposes the process's prometheus counters, one file
// per component, all registered against a single package-level Registry
// in the teacher's promauto.With(Registry) style.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "whisper2"

// Registry is the single prometheus registry every promauto.With(...)
// call in this package registers against.
var Registry = prometheus.NewRegistry()
