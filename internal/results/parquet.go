package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/windco-project/windco/internal/postpro"
)

// statColumns orders the per-channel scalar columns of the case table.
var statColumns = []string{"min", "max", "mean", "std", "abs_max"}

// WriteCaseTable persists the per-case reductions as a Snappy-compressed
// Parquet table at tables/cases.parquet. The layout is one row per case:
// fixed metadata columns, then one column per channel statistic and one
// DEL column per fatigue channel, the channel sets being the union over
// all cases. Channels a case did not report are null.
func (s *Store) WriteCaseTable(runID string, cases []postpro.CaseSummary) error {
	statChans, delChans := tableChannels(cases)

	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(caseTableSchema(statChans, delChans), pfw, 4)
	if err != nil {
		return fmt.Errorf("case table %s: %w", runID, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, c := range cases {
		if err := pw.Write(caseTableRow(c, statChans, delChans)); err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return fmt.Errorf("case table %s: row %s: %w", runID, c.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return fmt.Errorf("case table %s: %w", runID, err)
	}
	_ = pfw.Close()

	dst := filepath.Join(s.Dir(runID), tablesDir, caseTable)
	if err := afero.WriteFile(s.fs, dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("case table %s: %w", runID, err)
	}
	return nil
}

// tableChannels returns the sorted union of statistic and DEL channels.
func tableChannels(cases []postpro.CaseSummary) (statChans, delChans []string) {
	statSet := map[string]bool{}
	delSet := map[string]bool{}
	for _, c := range cases {
		for ch := range c.Stats {
			statSet[ch] = true
		}
		for ch := range c.DEL {
			delSet[ch] = true
		}
	}
	for ch := range statSet {
		statChans = append(statChans, ch)
	}
	for ch := range delSet {
		delChans = append(delChans, ch)
	}
	sort.Strings(statChans)
	sort.Strings(delChans)
	return statChans, delChans
}

func caseTableSchema(statChans, delChans []string) string {
	field := func(name, typ string) map[string]string {
		return map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", name, typ),
		}
	}
	fields := []map[string]string{
		field("id", "BYTE_ARRAY"),
		field("dlc", "BYTE_ARRAY"),
		field("wind_type", "BYTE_ARRAY"),
		field("wind_speed", "DOUBLE"),
		field("seed_index", "INT64"),
		field("parked", "BOOLEAN"),
	}
	for _, ch := range statChans {
		for _, stat := range statColumns {
			fields = append(fields, field(columnName(ch)+"_"+stat, "DOUBLE"))
		}
	}
	for _, ch := range delChans {
		fields = append(fields, field(columnName(ch)+"_del", "DOUBLE"))
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func caseTableRow(c postpro.CaseSummary, statChans, delChans []string) map[string]any {
	row := map[string]any{
		"id":         c.ID,
		"dlc":        c.DLC,
		"wind_type":  string(c.WindType),
		"wind_speed": c.WindSpeed,
		"seed_index": c.SeedIndex,
		"parked":     c.Parked,
	}
	for _, ch := range statChans {
		name := columnName(ch)
		if cs, ok := c.Stats[ch]; ok {
			row[name+"_min"] = cs.Min
			row[name+"_max"] = cs.Max
			row[name+"_mean"] = cs.Mean
			row[name+"_std"] = cs.Std
			row[name+"_abs_max"] = cs.AbsMax
		} else {
			for _, stat := range statColumns {
				row[name+"_"+stat] = nil
			}
		}
	}
	for _, ch := range delChans {
		if del, ok := c.DEL[ch]; ok {
			row[columnName(ch)+"_del"] = del
		} else {
			row[columnName(ch)+"_del"] = nil
		}
	}
	return row
}

// columnName folds an output channel name to a portable column name.
func columnName(ch string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ch) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
