package output

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// textReader parses the tabular text format: a free-form description
// block, then a header line starting with the time channel, a units
// line, and whitespace-separated sample rows.
type textReader struct{}

func (textReader) Extensions() []string { return []string{".out", ".txt"} }

func (textReader) Read(fs afero.Fs, path string) (*TimeSeries, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var ts *TimeSeries
	var name string
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if ts == nil {
			if fields[0] == ChanTime {
				units := make([]string, len(fields))
				if sc.Scan() {
					line++
					units = strings.Fields(strings.TrimSpace(sc.Text()))
				}
				if len(units) != len(fields) {
					return nil, fmt.Errorf("line %d: %d units for %d channels", line, len(units), len(fields))
				}
				ts, err = NewTimeSeries(name, fields, units)
				if err != nil {
					return nil, err
				}
				continue
			}
			// description block before the header
			if name == "" {
				name = text
			}
			continue
		}
		row := make([]float64, len(fields))
		for i, fld := range fields {
			v, err := strconv.ParseFloat(fld, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", line, fld, err)
			}
			row[i] = v
		}
		if err := ts.AppendRow(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, fmt.Errorf("no channel header found")
	}
	return ts, nil
}

// WriteOut writes a TimeSeries in the tabular text format.
func WriteOut(fs afero.Fs, path string, ts *TimeSeries) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if ts.Name != "" {
		fmt.Fprintf(w, "%s\n\n", ts.Name)
	}
	for i, c := range ts.Channels {
		if i > 0 {
			w.WriteByte('\t')
		}
		fmt.Fprintf(w, "%13s", c)
	}
	w.WriteByte('\n')
	for i, u := range ts.Units {
		if i > 0 {
			w.WriteByte('\t')
		}
		fmt.Fprintf(w, "%13s", u)
	}
	w.WriteByte('\n')
	for _, row := range ts.Rows {
		for i, v := range row {
			if i > 0 {
				w.WriteByte('\t')
			}
			fmt.Fprintf(w, "%13.6E", v)
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}
