// Package queryir holds the mutable query model shared by the fluent
// builder and the SQL grammar.
//
// A Query is a plain aggregate: table source, projection, predicate lists,
// grouping, ordering, limits, unions and an optional aggregate marker. Every
// value that will later be sent as a placeholder lives in the query's
// Bindings store, keyed by the clause category it belongs to.
//
// ARCHITECTURE:
//
//	[builder.Builder] → [queryir.Query] → [querysql.Grammar] → (sql, bindings)
//
// The builder mutates the Query, the grammar reads it. Nothing in this
// package performs I/O.
//
// BINDING ORDER:
//
// Flatten returns bindings in the fixed clause order
//
//	select, from, join, where, groupBy, having, order, union, unionOrder
//
// which is the same order in which the grammar emits `?` placeholders. The
// builder must append a binding to the category of the clause that renders
// its placeholder, in the same sequence the placeholder appears in that
// clause.
//
// PREDICATES:
//
// A Predicate is a flat record (column, operator, value, connector, negated).
// Nested groups are stored as a single Predicate whose column is an
// Expression holding the already compiled "(...)" or "NOT (...)" fragment,
// so the grammar never recurses into child builders.
package queryir
