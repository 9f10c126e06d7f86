package monitor

import "time"

type Status struct {
	Storage    bool      `json:"storage"`
	Redis      bool      `json:"redis"`
	Buffer     bool      `json:"buffer"`
	BufferSize int       `json:"buffer_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether storage and Redis answered the last probe.
func (s Status) Healthy() bool {
	return s.Storage && s.Redis
}
