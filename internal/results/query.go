package results

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/PaesslerAG/jsonpath"
	"github.com/spf13/afero"
)

// Query evaluates a JSONPath expression against the stored record of a
// run, e.g. "$.summary.aep" or "$.cases[0].status". The record is
// decoded generically so expressions see the exact wire names of
// record.json.
func (s *Store) Query(runID, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("query %s: empty jsonpath expression", runID)
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.Dir(runID), recordFile))
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", runID, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", runID, err)
	}
	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("query %s (%s): %w", runID, expr, err)
	}
	return val, nil
}
