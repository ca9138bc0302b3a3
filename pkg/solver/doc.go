// Package solver implements the optimization drivers behind turbine
// co-design studies.
//
// The solver package contains the algorithms that move the design
// variables of a geometry deck toward a better merit figure while
// honoring the analysis constraints. Evaluations are delegated to an
// Evaluator, so the drivers never know whether a point costs a
// reduced-order sweep or a full aeroelastic campaign.
//
// Key Components:
//
//   - Problem: normalization of the design variables onto the unit
//     cube plus the exterior quadratic constraint penalty
//   - Driver: the strategy interface, built through the New factory
//   - Report: incumbent, iteration history and evaluation tallies
//
// Driver Strategies:
//
// The trust region driver is the multifidelity workhorse:
//  1. Correct the reduced-order objective so it interpolates the
//     high-fidelity one at the incumbent
//  2. Minimize the corrected surrogate inside the trust radius
//  3. Measure the candidate at high fidelity
//  4. Accept or reject on the measured-to-predicted improvement
//     ratio, then contract or expand the radius
//
// The nelder_mead driver runs a single-fidelity simplex search, and
// the grid driver scans a full-factorial lattice for baseline studies.
//
// Example usage:
//
//	driver, err := solver.New(solver.Spec{
//	    Options:  analysis.Driver.Optimization,
//	    Problem:  solver.NewProblem(analysis, evaluator),
//	    Fidelity: modeling.General.Fidelity,
//	})
//	if err != nil {
//	    return err
//	}
//	report, err := driver.Solve(ctx)
//	if err != nil {
//	    return err
//	}
//	log.Info("optimization finished",
//	    "driver", report.Driver,
//	    "merit", report.Best.Merit,
//	    "reason", report.Reason)
//
// The drivers are designed to be:
//   - Deterministic: same decks and seeds produce the same history
//   - Bounded: iterates never leave the declared variable ranges
//   - Frugal: high-fidelity evaluations respect a hard budget
//   - Inspectable: every candidate lands in the iteration history
package solver
