// Package metrics instruments campaign execution and optimization.
//
// Every run owns one Recorder with a private Prometheus registry, so
// parallel runs in one process never share series and tests never leak
// samples into each other.
//
// # Metrics
//
// Campaign execution:
//
//	windco_cases_started_total{dlc}
//	windco_cases_completed_total{dlc, status}
//	windco_case_retries_total{dlc}
//	windco_case_duration_seconds{backend}
//
// The status label carries the terminal state of a case: succeeded,
// failed or skipped. The duration histogram spans every attempt of a
// case including backoff waits, labeled by the simulation backend, so
// reduced-order and aeroelastic timings stay separable.
//
// Optimization:
//
//	windco_optimizer_iterations_total{driver}
//	windco_merit_figure{name}
//
// The merit gauge tracks the incumbent merit figure while a driver
// runs and settles on the final campaign's value.
//
// # Exposure
//
// Two paths, both optional:
//
//  1. Pull: Serve exposes /metrics on a configured address for the
//     lifetime of the run. Meant for long campaigns watched live.
//  2. Textfile: WriteTextfile dumps the registry in the text
//     exposition format at the end of the run, for the node-exporter
//     textfile collector on batch hosts.
//
// # Usage
//
//	rec := metrics.NewRecorder()
//	go rec.Serve(ctx, ":9090")
//
//	camp.OnStart = func(c dlc.Case) { rec.CaseStarted(c.DLC) }
//	camp.Observer = func(o executor.Outcome) {
//	    rec.CaseCompleted(o.Case.DLC, string(o.Status), backend, o.Attempts, o.Duration)
//	}
package metrics
