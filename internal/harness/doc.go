// Package harness runs query builder scenarios against a fresh sqlite store
// and checks the statements they send and the rows they leave behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: soft_delete_restore
//	description: "What this scenario validates"
//	setup:
//	  - CREATE TABLE events (id INTEGER, name TEXT, is_deleted INTEGER DEFAULT 0, deleted_at TEXT)
//	  - INSERT INTO events (id, name) VALUES (1, 'alpha')
//	soft_delete:
//	  version_column: version
//	steps:
//	  - op: delete
//	    query: {table: events, soft_delete: true}
//	    ids: [1]
//	    expect: {rows: 1}
//	assertions:
//	  - type: statement_contains
//	    sql: INSERT INTO events
//	  - type: final_state
//	    table: events
//	    where: {id: 1}
//	    expect: {is_deleted: 1}
//
// Step queries use the query file format of the chq CLI. The update op takes
// its assignments from the query's set section.
//
// # Assertion Types
//
//   - statement_contains: some statement contains the given SQL
//   - statement_count: exactly N statements were sent
//   - statement_order: statements containing each substring appear in order
//   - final_state: exactly one row matches where and has the expected fields
//
// # Deterministic Testing
//
// Soft-delete times and versions come from testutil.DeterministicClock, so
// traces are identical across runs and can be compared against golden
// files with RunWithGolden.
package harness
