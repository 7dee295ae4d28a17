// Package dashboard serves the rendered charts over HTTP.
//
// It exposes a read-only surface: an HTML index embedding every chart
// from the render pipeline's index file, the chart images and data
// files themselves, connection health as JSON, and collector metrics
// in Prometheus exposition format.
//
// The server follows the same lifecycle pattern as the other
// components:
//
//	srv, err := dashboard.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
//
// Thread Safety: All methods are safe for concurrent use.
package dashboard
