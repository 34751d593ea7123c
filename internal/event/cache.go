package event

import (
	"github.com/google/uuid"

	"github.com/dshills/nflow/internal/event/topic"
	"github.com/dshills/nflow/internal/flow"
)

// listenerCache memoizes, per node and topic, how many active listeners the
// node's subtree holds (the node included). A zero entry lets downstream
// delivery skip the whole subtree.
//
// Entries stay valid until the node or one of its descendants gains or
// loses a child or a subscription; the emitter then invalidates the node
// where that happened and every ancestor of it. Callers hold Emitter.mu.
type listenerCache struct {
	counts map[uuid.UUID]map[topic.Topic]int
}

func newListenerCache() *listenerCache {
	return &listenerCache{counts: make(map[uuid.UUID]map[topic.Topic]int)}
}

func (c *listenerCache) get(n *flow.Node, t topic.Topic) (int, bool) {
	byTopic, ok := c.counts[n.ID()]
	if !ok {
		return 0, false
	}
	v, ok := byTopic[t]
	return v, ok
}

func (c *listenerCache) put(n *flow.Node, t topic.Topic, v int) {
	byTopic, ok := c.counts[n.ID()]
	if !ok {
		byTopic = make(map[topic.Topic]int)
		c.counts[n.ID()] = byTopic
	}
	byTopic[t] = v
}

// drop forgets n and every ancestor of n.
func (c *listenerCache) drop(n *flow.Node) {
	delete(c.counts, n.ID())
	for _, p := range n.Parents() {
		delete(c.counts, p.ID())
	}
}

func (c *listenerCache) reset() {
	c.counts = make(map[uuid.UUID]map[topic.Topic]int)
}

func (c *listenerCache) len() int {
	return len(c.counts)
}
