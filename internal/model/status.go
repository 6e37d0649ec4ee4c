package model

import "time"

// Component health values
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusUp       = "up"
	StatusDown     = "down"
)

// ComponentStatus is the health of one dependency
type ComponentStatus struct {
	Status    string  `json:"status"`
	LatencyMs float64 `json:"latencyMs"`
	Error     string  `json:"error,omitempty"`
}

// APIStatus reports the time spent building the status response
type APIStatus struct {
	LatencyMs float64 `json:"latencyMs"`
}

// SystemStatus is returned by GET /system-status
type SystemStatus struct {
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	UptimeSec   int64           `json:"uptimeSec"`
	Environment string          `json:"environment"`
	API         APIStatus       `json:"api"`
	Database    ComponentStatus `json:"database"`
	Alkitab     ComponentStatus `json:"alkitab"`
}
