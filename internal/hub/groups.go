package hub

import (
	"sort"
	"sync"
)

// Groups maps a logical channel name (a lobby id) to the live connections subscribed to it.
// It is the transport-side mirror of lobby membership; it holds no domain state.
type Groups struct {
	mu     sync.RWMutex
	groups map[string]map[string]*Connection
}

// NewGroups returns an empty registry.
func NewGroups() *Groups {
	return &Groups{
		groups: make(map[string]map[string]*Connection),
	}
}

// Add subscribes c to group. Adding twice is a no-op.
func (g *Groups) Add(group string, c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.groups[group]
	if !ok {
		members = make(map[string]*Connection)
		g.groups[group] = members
	}
	members[c.ID] = c
}

// Remove unsubscribes the connection with connID from group. Empty groups are dropped.
func (g *Groups) Remove(group, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.groups[group]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(g.groups, group)
	}
}

// RemoveAll drops the whole group and returns the connections that were in it.
func (g *Groups) RemoveAll(group string) []*Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	members := g.groups[group]
	delete(g.groups, group)
	return sortedConnections(members)
}

// Members returns a snapshot of the connections in group, ordered by id.
func (g *Groups) Members(group string) []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedConnections(g.groups[group])
}

// Contains reports whether connID is subscribed to group.
func (g *Groups) Contains(group, connID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.groups[group][connID]
	return ok
}

// Broadcast queues an event for every member of group and returns how many accepted it.
func (g *Groups) Broadcast(group, target string, args ...any) int {
	msg := Event(target, args...)
	sent := 0
	for _, c := range g.Members(group) {
		if c.Write(msg) {
			sent++
		}
	}
	return sent
}

func sortedConnections(members map[string]*Connection) []*Connection {
	out := make([]*Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
