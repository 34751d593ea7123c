package flow

import (
	"fmt"
	"regexp"
)

// Matcher is a predicate over nodes.
type Matcher interface {
	Match(n *Node) bool
}

// MatchFunc adapts a function to Matcher.
type MatchFunc func(n *Node) bool

// Match implements Matcher.
func (f MatchFunc) Match(n *Node) bool {
	return f(n)
}

type nameMatcher string

func (m nameMatcher) Match(n *Node) bool {
	return n.name == string(m)
}

type patternMatcher struct {
	re *regexp.Regexp
}

func (m patternMatcher) Match(n *Node) bool {
	return m.re.MatchString(n.name)
}

type identityMatcher struct {
	target *Node
}

func (m identityMatcher) Match(n *Node) bool {
	return m.target.Is(n)
}

type constMatcher bool

func (m constMatcher) Match(*Node) bool {
	return bool(m)
}

// ByName matches nodes whose name equals name.
func ByName(name string) Matcher {
	return nameMatcher(name)
}

// ByPattern matches nodes whose name matches re.
func ByPattern(re *regexp.Regexp) Matcher {
	if re == nil {
		return None()
	}
	return patternMatcher{re: re}
}

// ByNode matches target itself.
func ByNode(target *Node) Matcher {
	if target == nil {
		return None()
	}
	return identityMatcher{target: target}
}

// None matches nothing.
func None() Matcher {
	return constMatcher(false)
}

// Any matches every node.
func Any() Matcher {
	return constMatcher(true)
}

// Compile normalizes a lookup expression into a Matcher:
//
//   - nil matches nothing
//   - a Matcher or func(*Node) bool is used as-is
//   - a *regexp.Regexp matches against the node name
//   - a *Node matches by identity
//   - a string matches the node name exactly
//   - bool and numeric literals match the node name against their
//     formatted value
//
// Any other expression matches nothing.
func Compile(expr any) Matcher {
	switch e := expr.(type) {
	case nil:
		return None()
	case MatchFunc:
		if e == nil {
			return None()
		}
		return e
	case Matcher:
		return e
	case func(*Node) bool:
		if e == nil {
			return None()
		}
		return MatchFunc(e)
	case *regexp.Regexp:
		return ByPattern(e)
	case *Node:
		return ByNode(e)
	case string:
		return ByName(e)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return ByName(fmt.Sprint(e))
	default:
		return None()
	}
}

// filter returns the nodes of list accepted by m, in order.
func filter(list []*Node, m Matcher) []*Node {
	var out []*Node
	for _, n := range list {
		if m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func last(list []*Node) *Node {
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}
