package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/afero"
)

// Packed binary output format: little-endian, 16-bit channel packing
// with per-channel scale and offset, time reconstructed from start and
// increment. File IDs 2 (10-byte channel names) and 3 (explicit name
// length) are accepted; files are written as ID 2.
const (
	binFileIDDefault  = 2
	binFileIDChanLen  = 3
	binNameLenDefault = 10
	binPackedRange    = 65534 // int16 span used by the packer
	binPackedCeiling  = 32767
)

type binaryReader struct{}

func (binaryReader) Extensions() []string { return []string{".outb"} }

func (binaryReader) Read(fs afero.Fs, path string) (*TimeSeries, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var fileID int16
	if err := binary.Read(r, binary.LittleEndian, &fileID); err != nil {
		return nil, fmt.Errorf("read file id: %w", err)
	}
	nameLen := binNameLenDefault
	switch fileID {
	case binFileIDDefault:
	case binFileIDChanLen:
		var n int16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read name length: %w", err)
		}
		nameLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported binary file id %d", fileID)
	}

	var numChans, numRecs int32
	if err := binary.Read(r, binary.LittleEndian, &numChans); err != nil {
		return nil, fmt.Errorf("read channel count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &numRecs); err != nil {
		return nil, fmt.Errorf("read record count: %w", err)
	}
	if numChans <= 0 || numRecs < 0 {
		return nil, fmt.Errorf("implausible table shape %dx%d", numRecs, numChans)
	}

	var timeStart, timeStep float64
	if err := binary.Read(r, binary.LittleEndian, &timeStart); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &timeStep); err != nil {
		return nil, err
	}

	scales := make([]float32, numChans)
	offsets := make([]float32, numChans)
	if err := binary.Read(r, binary.LittleEndian, scales); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, offsets); err != nil {
		return nil, err
	}

	var descLen int32
	if err := binary.Read(r, binary.LittleEndian, &descLen); err != nil {
		return nil, err
	}
	desc := make([]byte, descLen)
	if _, err := io.ReadFull(r, desc); err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}

	readStrings := func(n int) ([]string, error) {
		out := make([]string, n)
		buf := make([]byte, nameLen)
		for i := range out {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			out[i] = strings.TrimSpace(string(buf))
		}
		return out, nil
	}
	channels, err := readStrings(int(numChans) + 1)
	if err != nil {
		return nil, fmt.Errorf("read channel names: %w", err)
	}
	units, err := readStrings(int(numChans) + 1)
	if err != nil {
		return nil, fmt.Errorf("read channel units: %w", err)
	}

	ts, err := NewTimeSeries(strings.TrimSpace(string(desc)), channels, units)
	if err != nil {
		return nil, err
	}
	packed := make([]int16, int(numChans))
	for rec := 0; rec < int(numRecs); rec++ {
		if err := binary.Read(r, binary.LittleEndian, packed); err != nil {
			return nil, fmt.Errorf("read record %d: %w", rec, err)
		}
		row := make([]float64, numChans+1)
		row[0] = timeStart + float64(rec)*timeStep
		for c := 0; c < int(numChans); c++ {
			row[c+1] = (float64(packed[c]) - float64(offsets[c])) / float64(scales[c])
		}
		ts.Rows = append(ts.Rows, row)
	}
	return ts, nil
}

// WriteOutb writes a TimeSeries in the packed binary format. The time
// channel must be uniformly sampled.
func WriteOutb(fs afero.Fs, path string, ts *TimeSeries) error {
	n := len(ts.Channels) - 1
	if n < 1 {
		return fmt.Errorf("binary format needs at least one data channel")
	}
	timeStart, timeStep, err := uniformTime(ts)
	if err != nil {
		return err
	}

	scales := make([]float32, n)
	offsets := make([]float32, n)
	for c := 0; c < n; c++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range ts.Rows {
			lo = math.Min(lo, row[c+1])
			hi = math.Max(hi, row[c+1])
		}
		if len(ts.Rows) == 0 || hi == lo {
			scales[c], offsets[c] = 1, 0
			continue
		}
		scl := binPackedRange / (hi - lo)
		scales[c] = float32(scl)
		offsets[c] = float32(binPackedCeiling - scl*hi)
	}

	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for _, v := range []any{
		int16(binFileIDDefault),
		int32(n),
		int32(len(ts.Rows)),
		timeStart,
		timeStep,
		scales,
		offsets,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	desc := []byte(ts.Name)
	if err := binary.Write(w, binary.LittleEndian, int32(len(desc))); err != nil {
		return err
	}
	if _, err := w.Write(desc); err != nil {
		return err
	}
	writeStrings := func(vals []string) error {
		for _, s := range vals {
			buf := make([]byte, binNameLenDefault)
			copy(buf, s)
			for i := len(s); i < binNameLenDefault; i++ {
				buf[i] = ' '
			}
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeStrings(ts.Channels); err != nil {
		return err
	}
	if err := writeStrings(ts.Units); err != nil {
		return err
	}

	packed := make([]int16, n)
	for _, row := range ts.Rows {
		for c := 0; c < n; c++ {
			v := math.Round(row[c+1]*float64(scales[c]) + float64(offsets[c]))
			packed[c] = int16(clampPacked(v))
		}
		if err := binary.Write(w, binary.LittleEndian, packed); err != nil {
			return err
		}
	}
	return w.Flush()
}

func uniformTime(ts *TimeSeries) (start, step float64, err error) {
	if len(ts.Rows) == 0 {
		return 0, 0, nil
	}
	start = ts.Rows[0][0]
	if len(ts.Rows) == 1 {
		return start, 0, nil
	}
	step = ts.Rows[1][0] - start
	for i := 2; i < len(ts.Rows); i++ {
		if d := ts.Rows[i][0] - ts.Rows[i-1][0]; math.Abs(d-step) > 1e-6*math.Max(1, math.Abs(step)) {
			return 0, 0, fmt.Errorf("binary format needs uniform time steps (got %.6g then %.6g)", step, d)
		}
	}
	return start, step, nil
}

func clampPacked(v float64) float64 {
	if v > binPackedCeiling {
		return binPackedCeiling
	}
	if v < -binPackedCeiling-1 {
		return -binPackedCeiling - 1
	}
	return v
}
