// Package metrics records build and dev server metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics never
// need nil checks at call sites:
//
//	b := site.NewBuilder(sitePath, serving) // uses NoopRecorder
//	b.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The dev server exposes the Prometheus registry at /_metrics through
// HTTPHandler.
package metrics
