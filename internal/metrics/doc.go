// Package metrics records run and stage metrics.
//
// Components receive a Recorder through the run context. NoopRecorder is the default and
// does nothing; PrometheusRecorder forwards to a Prometheus registry that watch mode can
// serve over HTTP with HTTPHandler.
package metrics
