package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entities that can be parked in the buffer while Postgres is unreachable.
const (
	EntityProfile = "profile"
	EntitySociety = "society"

	OperationUpdate = "update"
)

const defaultPriority = 3

// Item is a deferred write replayed once the primary store is back.
type Item struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	key []byte
}

func (i *Item) prepare() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority < 1 || i.Priority > 5 {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
