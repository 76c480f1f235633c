// Command chq builds and runs queries against an append-only columnar store.
package main

import (
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // read-only: no ALTER TABLE mutations
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/chq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
