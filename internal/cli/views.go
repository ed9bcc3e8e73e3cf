package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// operationView mirrors the server's API shape of one operation.
type operationView struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Channel          string     `json:"channel"`
	Submitter        string     `json:"submitter"`
	State            string     `json:"state"`
	Privileged       bool       `json:"privileged"`
	Large            bool       `json:"large"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at"`
	MemoryAtCreation uint64     `json:"memory_at_creation"`
	QueuePosition    int        `json:"queue_position"`
	StatusLine       string     `json:"status_line"`
}

func printOperation(v operationView) {
	fmt.Printf("Operation: %s\n", v.ID)
	fmt.Printf("  Kind:      %s\n", v.Kind)
	fmt.Printf("  Channel:   %s\n", v.Channel)
	fmt.Printf("  Submitter: %s\n", v.Submitter)
	fmt.Printf("  State:     %s\n", v.State)
	if v.QueuePosition >= 0 {
		fmt.Printf("  Position:  %d\n", v.QueuePosition)
	}
	fmt.Printf("  Created:   %s\n", humanize.Time(v.CreatedAt))
	if v.StartedAt != nil {
		fmt.Printf("  Started:   %s\n", humanize.Time(*v.StartedAt))
	}
	fmt.Printf("  Memory:    %s at creation\n", humanize.Bytes(v.MemoryAtCreation))
}

func printOperationLine(v operationView) {
	pos := "-"
	if v.QueuePosition >= 0 {
		pos = fmt.Sprintf("%d", v.QueuePosition)
	}
	fmt.Printf("%-40s %-10s %-12s %-10s pos=%s\n", v.ID, v.State, v.Kind, v.Channel, pos)
}
