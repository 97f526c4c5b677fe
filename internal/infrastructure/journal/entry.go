package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Priorities order the drain: settlement repairs before cache invalidations.
const (
	PrioritySettlement   = 1
	PriorityInvalidation = 3
)

// Entry is one journaled repair that failed inline and awaits replay.
type Entry struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Subject   string          `json:"subject"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Priority <= 0 || e.Priority > 5 {
		e.Priority = PriorityInvalidation
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
