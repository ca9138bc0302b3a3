// Package windio defines the typed forms of the three windco input decks:
// the turbine deck (geometry, drivetrain, airfoils, control limits), the
// modeling options deck (fidelity, simulation setup, controller tuning
// targets, load case matrix, execution policy) and the analysis options
// deck (design variables, merit figure, constraints, driver settings).
//
// Loading a deck is a fixed pipeline: read, schema-validate the raw
// document, decode strictly into the typed struct, apply defaults, then
// run the cross-field validation that a schema cannot express. Callers
// receive a deck that is complete and internally consistent, so the rest
// of the system never re-checks these properties.
//
// Decks are plain data. Mutation during an optimization run goes through
// ApplyDesignVariable on copies produced by DeepCopy; the loaded base
// decks are never modified.
package windio
