// Package schema validates the three windco input decks against their
// embedded JSON Schemas before any typed decoding happens. Schema
// validation catches structural mistakes (missing sections, wrong types,
// out-of-range scalars); cross-field semantics live with the deck types
// in pkg/windio.
package schema

import (
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// DeckKind identifies one of the three input decks.
type DeckKind string

const (
	// DeckTurbine is the turbine geometry/property deck.
	DeckTurbine DeckKind = "turbine"
	// DeckModeling is the modeling options deck.
	DeckModeling DeckKind = "modeling"
	// DeckAnalysis is the analysis options deck.
	DeckAnalysis DeckKind = "analysis"
)

var schemaFiles = map[DeckKind]string{
	DeckTurbine:  "schemas/turbine.schema.json",
	DeckModeling: "schemas/modeling.schema.json",
	DeckAnalysis: "schemas/analysis.schema.json",
}

var (
	compileOnce sync.Once
	compiled    map[DeckKind]*jsonschema.Schema
	compileErr  error
)

// compile loads and compiles all embedded schemas exactly once. A compile
// failure is a packaging bug, not user error, so it is reported verbatim.
func compile() {
	compiled = make(map[DeckKind]*jsonschema.Schema, len(schemaFiles))
	c := jsonschema.NewCompiler()
	for kind, name := range schemaFiles {
		f, err := schemaFS.Open(name)
		if err != nil {
			compileErr = fmt.Errorf("open embedded schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(name, f); err != nil {
			f.Close()
			compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
			return
		}
		f.Close()
		sch, err := c.Compile(name)
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		compiled[kind] = sch
	}
}

// Validate checks a YAML-decoded document against the schema for the given
// deck kind. doc must be the output of a yaml.Unmarshal into any
// (maps, slices and scalars). On failure it returns a *ValidationError
// listing every violation with its instance path.
func Validate(kind DeckKind, doc any) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	sch, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown deck kind %q", kind)
	}
	if err := sch.Validate(doc); err != nil {
		return newValidationError(kind, err)
	}
	return nil
}
