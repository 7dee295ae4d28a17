package connector

func init() {
	Register(&sqlConnector{
		kind:   "mysql",
		driver: "mysql",
		info: Info{
			Name:      "QV-MySQL",
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
