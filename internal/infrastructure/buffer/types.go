package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	KindTaskEvent = "task_event"

	defaultPriority = 3
	maxPriority     = 5
)

// Item is an activity record waiting to reach primary storage.
type Item struct {
	ID        string          `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > maxPriority {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
