package connector

import (
	"fmt"
	"net"
	"strings"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"
)

func init() {
	Register(&sqlConnector{
		kind:   "postgresql",
		driver: "postgres",
		info: Info{
			Name:      "QV-PostgreSQL",
			URL:       "https://github.com/vettabase/query-viz",
			Version:   "0.1",
			Maturity:  "gamma",
			License:   "AGPLv3",
			Copyright: "2025, Vettabase Ltd",
			Authors:   []Author{{Name: "Vettabase Ltd", URL: "https://vettabase.com"}},
		},
		caps: Capabilities{Failover: true, Pooling: true},
		dsn:  postgresDSN,
	})
}

// postgresDSN builds a lib/pq key/value DSN for one candidate address.
func postgresDSN(spec Spec, addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, "5432"
	}

	database := spec.Database
	if database == "" {
		database = "postgres"
	}

	parts := []string{
		"host=" + pqEscape(host),
		"port=" + pqEscape(port),
		"dbname=" + pqEscape(database),
		fmt.Sprintf("connect_timeout=%d", int(spec.Timeout.Seconds())),
		"sslmode=disable",
	}
	if spec.User != "" {
		parts = append(parts, "user="+pqEscape(spec.User))
	}
	if spec.Password != "" {
		parts = append(parts, "password="+pqEscape(spec.Password))
	}
	return strings.Join(parts, " ")
}

// pqEscape quotes a DSN value if it contains characters the key/value
// format treats specially.
func pqEscape(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
