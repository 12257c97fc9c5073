/*
Package observability exposes scorebridge runtime metrics for Prometheus.

Metrics cover worker provisioning and scoring evaluations, labelled by outcome
(ok or the failure kind).
*/
package observability
