package connector

import (
	"github.com/go-sql-driver/mysql"
)

func init() {
	Register(&sqlConnector{
		kind:   "mariadb",
		driver: "mysql",
		info: Info{
			Name:      "QV-MariaDB",
			URL:       "https://github.com/vettabase/query-viz",
			Version:   "0.1",
			Maturity:  "gamma",
			License:   "AGPLv3",
			Copyright: "2025, Vettabase Ltd",
			Authors:   []Author{{Name: "Vettabase Ltd", URL: "https://vettabase.com"}},
		},
		caps: Capabilities{Failover: true, Pooling: true},
		dsn:  mysqlDSN,
	})
}

// mysqlDSN builds a go-sql-driver DSN for one candidate address.
// Shared by the mariadb and mysql kinds; the wire protocol is the same.
func mysqlDSN(spec Spec, addr string) string {
	cfg := mysql.NewConfig()
	cfg.User = spec.User
	cfg.Passwd = spec.Password
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = spec.Database
	cfg.Timeout = spec.Timeout
	cfg.ReadTimeout = spec.Timeout
	cfg.WriteTimeout = spec.Timeout
	return cfg.FormatDSN()
}
