// Package condition implements the structured predicate attached to
// custom-permission transitions. A predicate is a boolean expression tree
// of And/Or/Not nodes over named leaves drawn from a closed registry.
//
// Evaluation is fail-closed: a malformed tree or a reference to an
// unregistered leaf never grants access. The JSON document grammar is
//
//	{"and": [expr, ...]}
//	{"or":  [expr, ...]}
//	{"not": expr}
//	{"leaf": "name", "args": {...}}
//
// so conditions stored by one deployment remain portable to another.
package condition
