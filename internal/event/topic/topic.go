package topic

import "strings"

// Topic is a dot-separated event name such as "flow.parent" or
// "flow.children.dispose".
type Topic string

// Wildcard and separator tokens.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator joins segments.
	Separator = "."
)

// Structural topic prefixes. A structural event called name is delivered as
// Self(name) to the node it happened to, as Children(name) to that node's
// ancestors, and as Parent(name) to its descendants.
const (
	// Prefix is the root segment of every structural topic.
	Prefix = "flow"

	childrenSegment = "children"
	parentSegment   = "parent"
)

// Self returns the topic a node receives for its own structural event.
//
// Example: Self("dispose") -> "flow.dispose"
func Self(name string) Topic {
	return Join(Prefix, name)
}

// Children returns the topic an ancestor receives when one of its
// descendants has the structural event name.
//
// Example: Children("parented") -> "flow.children.parented"
func Children(name string) Topic {
	return Join(Prefix, childrenSegment, name)
}

// Parent returns the topic a descendant receives when one of its ancestors
// has the structural event name.
//
// Example: Parent("parent") -> "flow.parent.parent"
func Parent(name string) Topic {
	return Join(Prefix, parentSegment, name)
}

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split on the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Base returns the last segment.
func (t Topic) Base() string {
	s := string(t)
	if idx := strings.LastIndex(s, Separator); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// IsWildcard reports whether the topic contains a wildcard segment.
func (t Topic) IsWildcard() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// IsValid reports whether the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether t matches pattern, which may contain wildcards.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == WildcardMulti {
			for skip := 0; skip <= len(topic); skip++ {
				if matchSegments(topic[skip:], pattern[1:]) {
					return true
				}
			}
			return false
		}
		if len(topic) == 0 || (head != WildcardSingle && head != topic[0]) {
			return false
		}
		topic, pattern = topic[1:], pattern[1:]
	}
	return len(topic) == 0
}

// Join builds a topic from segments.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
