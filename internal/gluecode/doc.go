// Package gluecode wires the co-design pipeline end to end: decks in,
// run record out.
//
// The package owns no physics and no numerics of its own. It sequences
// the stages the rest of the module provides and decides what lands on
// disk when a stage fails.
//
// # Pipeline Flow
//
//  1. Load and validate the three decks (turbine, modeling, analysis)
//  2. Derive the model: coefficient surface, operating schedule,
//     controller tuning
//  3. Discover the external toolchain and check it against the
//     requested fidelity
//  4. Expand the design load case list from the modeling options
//  5. Run the campaign over the worker pool at the modeling fidelity
//  6. Reduce the outputs: statistics, damage-equivalent loads, AEP,
//     factored extremes
//  7. Persist the run record, summary and case table via the results
//     store, then archive when the analysis deck asks for it
//
// # Optimization
//
// When the analysis deck enables an optimization driver, steps 2-6
// become the evaluator inside the driver: every design point rebuilds
// the turbine with the design variables applied and runs its own
// campaign under evals/ in the run directory. The best design then
// re-runs as the final full campaign, so the persisted summary always
// describes the delivered design, not a surrogate.
//
// # Run Layout
//
// Every run gets one directory under the results store root:
//
//	<run-id>/
//	  record.json      full run record
//	  summary.yaml     human-readable digest
//	  inputs/          the three decks, staged verbatim
//	  cases/<id>/      one workdir per load case
//	  evals/           per-evaluation campaigns when optimizing
//	  tables/          parquet case table
//
// # Failure Handling
//
// A campaign that loses cases still persists the record before the
// error returns, so the run directory always tells the full story:
// every outcome, every attempt count, every error string. Missing
// external tools are fatal before any case starts; fidelity level 1
// needs none.
//
// # Usage
//
//	p := gluecode.New(afero.NewOsFs(), gluecode.Options{Runtime: cfg})
//	rec, err := p.Run(ctx, gluecode.Inputs{
//		Turbine:  "iea22mw.yaml",
//		Modeling: "modeling.yaml",
//		Analysis: "analysis.yaml",
//	})
//
// See also:
//   - internal/executor: the campaign worker pool
//   - internal/postpro: the campaign reduction
//   - internal/results: the run store
//   - pkg/solver: the optimization drivers
package gluecode
