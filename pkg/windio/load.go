package windio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/windco-project/windco/internal/schema"
)

// LoadTurbine reads, validates and defaults a turbine deck.
func LoadTurbine(fs afero.Fs, path string) (*Turbine, error) {
	var t Turbine
	if err := loadDeck(fs, path, schema.DeckTurbine, &t); err != nil {
		return nil, err
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("turbine deck %s: %w", path, err)
	}
	return &t, nil
}

// LoadModelingOptions reads, validates and defaults a modeling options deck.
func LoadModelingOptions(fs afero.Fs, path string) (*ModelingOptions, error) {
	var m ModelingOptions
	if err := loadDeck(fs, path, schema.DeckModeling, &m); err != nil {
		return nil, err
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("modeling deck %s: %w", path, err)
	}
	return &m, nil
}

// LoadAnalysisOptions reads, validates and defaults an analysis options deck.
func LoadAnalysisOptions(fs afero.Fs, path string) (*AnalysisOptions, error) {
	var a AnalysisOptions
	if err := loadDeck(fs, path, schema.DeckAnalysis, &a); err != nil {
		return nil, err
	}
	a.applyDefaults()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("analysis deck %s: %w", path, err)
	}
	return &a, nil
}

// loadDeck runs the shared pipeline: read, schema-validate the untyped
// document, then decode strictly into out. Schema validation runs on the
// untyped form so violations carry instance paths instead of Go field
// names.
func loadDeck(fs afero.Fs, path string, kind schema.DeckKind, out any) error {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read %s deck: %w", kind, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s deck %s: %w", kind, path, err)
	}
	if err := schema.Validate(kind, doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s deck %s: %w", kind, path, err)
	}
	return nil
}
