package model

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// OpIdentity is the duplicate-detection key for an operation. Two live
// operations of the same kind targeting the same channel conflict; the
// newer one is dropped.
type OpIdentity struct {
	Kind    string `json:"kind"`
	Channel string `json:"channel"`
}

// String returns the identity in kind@channel form.
func (id OpIdentity) String() string {
	return id.Kind + "@" + id.Channel
}

// OpRecord holds identity, state, and timestamps for one submitted
// operation. Records carry no behavior beyond state transitions; the
// scheduler drives the lifecycle and the admission queue owns membership.
type OpRecord struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Channel   string `json:"channel"`
	Submitter string `json:"submitter"`

	// Seq orders submissions process-wide. Assigned once at creation;
	// duplicate resolution drops the record with the higher Seq.
	Seq uint64 `json:"seq"`

	// Privileged and Large are resolved once at creation and are
	// immutable afterwards.
	Privileged bool `json:"privileged"`
	Large      bool `json:"large"`

	State     OpState    `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"` // nil until admission completes

	// MemoryAtCreation is a diagnostic heap snapshot taken when the
	// record was created. Informational only.
	MemoryAtCreation uint64 `json:"memory_at_creation"`
}

// Identity returns the duplicate-detection key for this record.
func (r *OpRecord) Identity() OpIdentity {
	return OpIdentity{Kind: r.Kind, Channel: r.Channel}
}

// Describe renders a one-line human-readable status of the record.
func (r *OpRecord) Describe() string {
	started := "not started"
	if r.StartedAt != nil {
		started = r.StartedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("op %s [%s] kind=%s channel=%s submitter=%s created=%s started=%s mem=%s",
		r.ID, r.State, r.Kind, r.Channel, r.Submitter,
		r.CreatedAt.UTC().Format(time.RFC3339), started,
		humanize.Bytes(r.MemoryAtCreation))
}
