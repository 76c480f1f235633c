// Package softdelete replaces physical deletes with inserted tombstones.
//
// Append-only stores apply ALTER TABLE ... DELETE as an asynchronous
// mutation. For tables whose engine keeps the latest version of each key
// (ReplacingMergeTree), deleting by inserting a newer copy of the row with
// a deleted flag is cheaper and reversible. A Table's Query builders hide
// flagged rows through a named scope, and their Delete writes tombstones
// instead of mutations.
//
// Visibility is eventual: until the engine merges the versions of a key,
// reads without FINAL may return both the live copy and the tombstone.
package softdelete
