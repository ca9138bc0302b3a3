package metrics

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
)

// WriteTextfile dumps the registry in the Prometheus text exposition
// format, for the node-exporter textfile collector on batch hosts. The
// dump lands via a temp file and rename so a concurrent scraper never
// reads a torn file.
func (r *Recorder) WriteTextfile(fs afero.Fs, path string) error {
	fams, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range fams {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics family %s: %w", mf.GetName(), err)
		}
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	return nil
}
