package monitor

import "time"

// Status is the last observed state of the backing services.
type Status struct {
	PostgreSQL     bool           `json:"postgresql"`
	Redis          bool           `json:"redis"`
	Buffer         bool           `json:"buffer"`
	BufferSize     int            `json:"buffer_size"`
	BufferByEntity map[string]int `json:"buffer_by_entity,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
}

// Degraded reports whether any dependency failed its last probe.
func (s Status) Degraded() bool {
	return !s.PostgreSQL || !s.Redis || !s.Buffer
}
