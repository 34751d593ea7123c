package topic

// Matcher indexes topic patterns in a segment trie so that every pattern
// matching a concrete topic can be found in one walk.
//
// Matcher is not safe for concurrent use; callers guard it.
type Matcher struct {
	root  *trieNode
	count int
}

type trieNode struct {
	children map[string]*trieNode
	pattern  Topic
	terminal bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newTrieNode()}
}

// Add indexes pattern. Adding a pattern twice is a no-op.
func (m *Matcher) Add(pattern Topic) {
	if !pattern.IsValid() {
		return
	}
	node := m.root
	for _, seg := range pattern.Segments() {
		next := node.children[seg]
		if next == nil {
			next = newTrieNode()
			node.children[seg] = next
		}
		node = next
	}
	if !node.terminal {
		node.terminal = true
		node.pattern = pattern
		m.count++
	}
}

// Remove drops pattern from the index and prunes empty branches.
func (m *Matcher) Remove(pattern Topic) {
	if !pattern.IsValid() {
		return
	}
	if m.remove(m.root, pattern.Segments()) {
		m.count--
	}
}

func (m *Matcher) remove(node *trieNode, segments []string) bool {
	if len(segments) == 0 {
		if !node.terminal {
			return false
		}
		node.terminal = false
		node.pattern = ""
		return true
	}
	child := node.children[segments[0]]
	if child == nil {
		return false
	}
	removed := m.remove(child, segments[1:])
	if removed && !child.terminal && len(child.children) == 0 {
		delete(node.children, segments[0])
	}
	return removed
}

// Has reports whether pattern is indexed.
func (m *Matcher) Has(pattern Topic) bool {
	node := m.root
	for _, seg := range pattern.Segments() {
		if node = node.children[seg]; node == nil {
			return false
		}
	}
	return node.terminal
}

// Match returns every indexed pattern that matches t. Each pattern is
// reported once.
func (m *Matcher) Match(t Topic) []Topic {
	if !t.IsValid() {
		return nil
	}
	seen := make(map[*trieNode]bool)
	var out []Topic
	m.walk(m.root, t.Segments(), seen, &out)
	return out
}

func (m *Matcher) walk(node *trieNode, segments []string, seen map[*trieNode]bool, out *[]Topic) {
	if len(segments) == 0 && node.terminal && !seen[node] {
		seen[node] = true
		*out = append(*out, node.pattern)
	}

	// "**" may swallow any number of the remaining segments, including none.
	if multi := node.children[WildcardMulti]; multi != nil {
		for i := 0; i <= len(segments); i++ {
			m.walk(multi, segments[i:], seen, out)
		}
	}
	if len(segments) == 0 {
		return
	}
	if exact := node.children[segments[0]]; exact != nil {
		m.walk(exact, segments[1:], seen, out)
	}
	if single := node.children[WildcardSingle]; single != nil {
		m.walk(single, segments[1:], seen, out)
	}
}

// Len returns the number of indexed patterns.
func (m *Matcher) Len() int {
	return m.count
}

// Clear drops every pattern.
func (m *Matcher) Clear() {
	m.root = newTrieNode()
	m.count = 0
}
