package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is one audit event awaiting delivery to primary storage. Data holds
// the marshaled domain event; the spool never inspects it.
type Item struct {
	ID        string          `json:"id"`
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
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
