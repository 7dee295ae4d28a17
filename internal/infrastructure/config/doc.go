// Package config provides configuration loading for query-viz.
//
// Configuration is read once at startup from a YAML file. Specs are
// immutable for the process lifetime: changing a connection or query
// requires a restart.
//
// # Structure
//
// A minimal config.yaml:
//
//	interval: 10s
//	db_connection_timeout_seconds: 10
//	failed_connections_interval: 1m
//	initial_grace_period: 30s
//	grace_period_retry_interval: 5s
//
//	connections:
//	  - name: primary
//	    dbms: mariadb
//	    hosts: ["db1:3306", "db2:3306"]
//	    user: monitor
//	    password: secret
//
//	queries:
//	  - name: threads-connected
//	    query: "SHOW GLOBAL STATUS LIKE 'Threads_connected'"
//	    column: Value
//	    interval: 5s
//
//	charts:
//	  - title: "Connections"
//	    ylabel: "threads"
//	    queries: [threads-connected]
//
// # Durations
//
// All duration values accept "<number>[s|m|h|d|w]". A bare number defaults
// to seconds, fractional values are allowed ("0.5m" is 30 seconds) and
// whitespace around the unit is ignored. Query intervals additionally
// accept the special value "once".
//
// # Environment overrides
//
// QUERYVIZ_OUTPUT_DIR, QUERYVIZ_LOG_LEVEL and QUERYVIZ_DASHBOARD_HOST
// override their file counterparts. The config file path itself comes from
// QUERYVIZ_CONFIG or the --config flag, handled in cmd.
//
// # Validation
//
// Load validates cross-references: every query must name an existing
// connection and every chart must name existing queries. Validation
// failures are fatal at startup.
package config
