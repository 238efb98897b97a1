package store

import (
	"encoding/json"

	"github.com/lithammer/shortuuid/v4"
)

// Job is one entry of the global jobs document. The payload is opaque
// to the bot: no dialogue path produces or consumes it, but the
// document must initialize empty and round-trip whatever is stored.
type Job struct {
	UID       string          `json:"uid"`
	Payload   json.RawMessage `json:"payload"`
	CreatedTs int64           `json:"createdTs"`
}

// NewJobUID generates the UID for a job entry.
func NewJobUID() string {
	return shortuuid.New()
}
