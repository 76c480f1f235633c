// Package store is the transport the query builder executes against.
//
// DB wraps a database/sql pool. Reads go through Select with positional
// bindings; mutations and DDL go through Statement as literal SQL, matching
// stores that apply ALTER TABLE mutations asynchronously and do not bind
// parameters for them. Escape renders literals in the configured dialect
// for that substitution.
//
// Any registered driver can be opened by name. The sqlite3 driver is linked
// by this package and is used for local runs and tests, with the ANSI
// dialect. Transactions are rejected with a NOT_SUPPORTED error.
//
// Every statement is logged at debug level with a query_id and sampled into
// the chq_statement_* metrics registered by MustRegisterMetrics.
package store
