package connector

// Registers the "sqlite3" driver with database/sql.
import (
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	Register(&sqlConnector{
		kind:   "sqlite",
		driver: "sqlite3",
		info: Info{
			Name:      "QV-SQLite",
			URL:       "https://github.com/vettabase/query-viz",
			Version:   "0.1",
			Maturity:  "gamma",
			License:   "AGPLv3",
			Copyright: "2025, Vettabase Ltd",
			Authors:   []Author{{Name: "Vettabase Ltd", URL: "https://vettabase.com"}},
		},
		// Candidates are file paths rather than host:port pairs; the
		// first openable path wins. Writes go through a single
		// connection, so no pooling is advertised.
		caps:       Capabilities{Failover: true, Pooling: false},
		dsn:        sqliteDSN,
		singleConn: true,
	})
}

// sqliteDSN treats the candidate as a database file path. The Database
// field is ignored for this kind.
func sqliteDSN(_ Spec, addr string) string {
	return addr
}
