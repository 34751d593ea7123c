package event

import (
	"sort"
	"sync"

	"github.com/dshills/nflow/internal/event/topic"
)

// registry holds the subscriptions of a single node, organized by topic
// pattern. It is thread-safe for concurrent access.
type registry struct {
	mu      sync.RWMutex
	subs    map[topic.Topic][]*Subscription
	byID    map[string]*Subscription
	matcher *topic.Matcher
}

func newRegistry() *registry {
	return &registry{
		subs:    make(map[topic.Topic][]*Subscription),
		byID:    make(map[string]*Subscription),
		matcher: topic.NewMatcher(),
	}
}

// add inserts sub keeping each pattern's list in priority order.
func (r *registry) add(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := append(r.subs[sub.pattern], sub)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].priority < subs[j].priority
	})
	r.subs[sub.pattern] = subs
	r.byID[sub.id] = sub
	r.matcher.Add(sub.pattern)
}

func (r *registry) remove(id string) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)

	subs := r.subs[sub.pattern]
	kept := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(r.subs, sub.pattern)
		r.matcher.Remove(sub.pattern)
	} else {
		r.subs[sub.pattern] = kept
	}
	return sub, true
}

// match returns active subscriptions whose pattern matches t, ordered by
// priority then registration order. The result is a copy.
func (r *registry) match(t topic.Topic) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := r.matcher.Match(t)
	if len(patterns) == 0 {
		return nil
	}

	var all []*Subscription
	for _, p := range patterns {
		for _, s := range r.subs[p] {
			if s.IsActive() {
				all = append(all, s)
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].priority != all[j].priority {
			return all[i].priority < all[j].priority
		}
		return all[i].seq < all[j].seq
	})
	return all
}

// count returns the number of active subscriptions matching t.
func (r *registry) count(t topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.matcher.Match(t) {
		for _, s := range r.subs[p] {
			if s.IsActive() {
				n++
			}
		}
	}
	return n
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// all returns every subscription in registration order.
func (r *registry) all() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscription, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// drain removes and returns every subscription.
func (r *registry) drain() []*Subscription {
	out := r.all()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[topic.Topic][]*Subscription)
	r.byID = make(map[string]*Subscription)
	r.matcher.Clear()
	return out
}
