// Package builder is the fluent query API over queryir and querysql.
//
// A Builder owns one queryir.Query and mutates it through chainable clause
// methods (Select, Where, Join, OrderBy, Union, ...). Terminal methods
// compile the query with the builder's grammar and hand it to a Connection:
//
//	rows, err := builder.Table(db, "events").
//		Where("region", 1).
//		OrderByDesc("created_at").
//		Limit(10).
//		Get(ctx)
//
// ERRORS:
//
// Clause methods never return errors. The first invalid argument is recorded
// on the builder and returned by Err, ToSQL and every terminal method before
// any call reaches the connection.
//
// SCOPES:
//
// Named scopes registered with WithScope are applied to a copy of the query
// when it is compiled, never to the builder itself. If the existing
// predicates contain an OR they are wrapped in a group first, so a scope
// always narrows the result.
//
// MUTATIONS:
//
// Update and Delete compile ALTER TABLE mutations, inline their bindings and
// submit them with Connection.Statement. The store applies them
// asynchronously; the returned count only says whether the mutation was
// accepted.
package builder
