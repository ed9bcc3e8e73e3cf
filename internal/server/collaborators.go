package server

import (
	"context"
	"sync"
	"sync/atomic"
)

// ChannelLog is an in-memory Notifier keeping per-channel message logs.
// It stands in for the real messaging transport in demos and tests.
type ChannelLog struct {
	mu   sync.Mutex
	msgs map[string][]string
}

// NewChannelLog creates an empty channel log.
func NewChannelLog() *ChannelLog {
	return &ChannelLog{msgs: make(map[string][]string)}
}

// Send appends text to the channel's log. Never fails.
func (l *ChannelLog) Send(_ context.Context, channel, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs[channel] = append(l.msgs[channel], text)
	return nil
}

// Messages returns a copy of the channel's log.
func (l *ChannelLog) Messages(channel string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.msgs[channel]))
	copy(out, l.msgs[channel])
	return out
}

// ToggleGate is a ConnectivityGate whose state can be flipped at
// runtime, for exercising the connectivity-wait path.
type ToggleGate struct {
	connected atomic.Bool
}

// NewToggleGate creates a gate that starts connected.
func NewToggleGate() *ToggleGate {
	g := &ToggleGate{}
	g.connected.Store(true)
	return g
}

func (g *ToggleGate) IsConnected() bool {
	return g.connected.Load()
}

// SetConnected flips the gate.
func (g *ToggleGate) SetConnected(v bool) {
	g.connected.Store(v)
}

// ListPrivileges resolves privilege from a fixed submitter list.
type ListPrivileges struct {
	ids map[string]bool
}

// NewListPrivileges builds a resolver over the given submitter IDs.
func NewListPrivileges(submitters []string) ListPrivileges {
	ids := make(map[string]bool, len(submitters))
	for _, s := range submitters {
		ids[s] = true
	}
	return ListPrivileges{ids: ids}
}

func (p ListPrivileges) IsPrivileged(submitter string) bool {
	return p.ids[submitter]
}
