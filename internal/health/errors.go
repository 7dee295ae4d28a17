package health

import "errors"

var (
	// ErrNoConnections is returned by Start when no connection could be
	// established before the startup grace period expired.
	ErrNoConnections = errors.New("health: no connections established within grace period")

	// ErrUnknownConnection is returned by Borrow for a name that was
	// never registered with the manager.
	ErrUnknownConnection = errors.New("health: unknown connection")

	// ErrNotConnected is returned by Borrow while a connection is failed
	// or not yet established.
	ErrNotConnected = errors.New("health: connection not established")
)
