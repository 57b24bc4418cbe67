package model

import (
	"fmt"
	"strings"
)

// Query is a composable predicate over elements. Queries are stateless and
// cheap; callers re-evaluate them on every poll because the underlying tree
// mutates between reads.
type Query struct {
	match func(Element) bool
	desc  string
}

// Matches reports whether the element satisfies the query.
func (q Query) Matches(el Element) bool {
	if q.match == nil {
		return true
	}
	return q.match(el)
}

// String returns a human-readable description of the query, used in
// diagnostics ("no element matched name~\"Save\" AND kind=btn").
func (q Query) String() string {
	if q.desc == "" {
		return "any"
	}
	return q.desc
}

// ByName matches elements whose name or value contains text
// (case-insensitive substring).
func ByName(text string) Query {
	lower := strings.ToLower(text)
	return Query{
		match: func(el Element) bool {
			return strings.Contains(strings.ToLower(el.Name), lower) ||
				strings.Contains(strings.ToLower(el.Value), lower)
		},
		desc: fmt.Sprintf("name~%q", text),
	}
}

// ByNameExact matches elements whose name equals text (case-insensitive).
func ByNameExact(text string) Query {
	return Query{
		match: func(el Element) bool {
			return strings.EqualFold(el.Name, text)
		},
		desc: fmt.Sprintf("name=%q", text),
	}
}

// ByAutomationID matches on the application-assigned stable identifier.
func ByAutomationID(id string) Query {
	return Query{
		match: func(el Element) bool { return el.AutomationID == id },
		desc:  fmt.Sprintf("id=%q", id),
	}
}

// ByClass matches on the toolkit class/category tag.
func ByClass(class string) Query {
	return Query{
		match: func(el Element) bool { return el.Class == class },
		desc:  fmt.Sprintf("class=%q", class),
	}
}

// ByKind matches on the normalized control kind.
func ByKind(kind Kind) Query {
	return Query{
		match: func(el Element) bool { return el.Kind == kind },
		desc:  fmt.Sprintf("kind=%s", kind),
	}
}

// And returns a query that matches when both q and other match.
func (q Query) And(other Query) Query {
	return Query{
		match: func(el Element) bool { return q.Matches(el) && other.Matches(el) },
		desc:  fmt.Sprintf("%s AND %s", q, other),
	}
}

// Or returns a query that matches when either q or other matches.
func (q Query) Or(other Query) Query {
	return Query{
		match: func(el Element) bool { return q.Matches(el) || other.Matches(el) },
		desc:  fmt.Sprintf("(%s OR %s)", q, other),
	}
}

// FindFirst searches the tree depth-first for the first element matching q.
func FindFirst(elements []Element, q Query) (Element, bool) {
	for _, el := range elements {
		if q.Matches(el) {
			return el, true
		}
		if found, ok := FindFirst(el.Children, q); ok {
			return found, true
		}
	}
	return Element{}, false
}

// FindAll collects every element in the tree matching q, depth-first.
func FindAll(elements []Element, q Query) []Element {
	var result []Element
	for _, el := range elements {
		if q.Matches(el) {
			result = append(result, el)
		}
		result = append(result, FindAll(el.Children, q)...)
	}
	return result
}

// FindByID searches the tree recursively for the element with the given
// sequential ID from the most recent read.
func FindByID(elements []Element, id int) (Element, bool) {
	for _, el := range elements {
		if el.ID == id {
			return el, true
		}
		if found, ok := FindByID(el.Children, id); ok {
			return found, true
		}
	}
	return Element{}, false
}

// Count returns the number of elements in the tree matching q. It is the
// cardinality function fed to stability polling when waiting for a
// dynamically populated view to finish loading.
func Count(elements []Element, q Query) int {
	n := 0
	for _, el := range elements {
		if q.Matches(el) {
			n++
		}
		n += Count(el.Children, q)
	}
	return n
}
