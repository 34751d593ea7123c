// Package topic provides dot-separated event topics and wildcard pattern
// matching for the flow event emitter.
//
// # Structural Topics
//
// Every structural change to a node is reported under three topics, one per
// audience:
//
//	flow.<name>            the node the change happened to
//	flow.children.<name>   each of its ancestors
//	flow.parent.<name>     each of its descendants
//
// so a reparent produces flow.parent / flow.children.parent /
// flow.parent.parent before the move and the same three with "parented"
// after it.
//
// # Wildcards
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// For example:
//
//	flow.*            flow.create, flow.dispose (not flow.children.create)
//	flow.**           every structural topic
//	flow.*.parented   flow.children.parented, flow.parent.parented
//
// # Matching
//
//	m := topic.NewMatcher()
//	m.Add("flow.*")
//	m.Add("flow.**")
//	m.Match(topic.Self("dispose")) // both patterns
package topic
