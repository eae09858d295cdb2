// Package http implements the rpc transport over HTTP.
//
// The server routes POST /{shardId} to the registered handler and additionally
// serves GET /metrics (prometheus text format, VictoriaMetrics) and GET /stats
// (request timers of the rpc server as json, go-metrics). With log level debug
// every request is logged with its duration.
//
// The client spreads requests round-robin over all configured endpoints. A
// failed request is retried on the next endpoint up to RetryCount times.
package http
