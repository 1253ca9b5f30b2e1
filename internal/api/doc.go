// Package api hosts the operator HTTP surface of the relay. Routes:
//   - GET /healthz for liveness probes.
//   - GET /readyz reports whether the seen-item store answers.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/scans/last returns the report of the most recent scan cycle.
package api
