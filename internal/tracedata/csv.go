package tracedata

import (
	"encoding/csv"
	"fmt"
	"os"
)

// readCSVTable reads a whole CSV file into memory, header row included.
func readCSVTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LUTRow4 is one row of the BQ25570 boost-converter efficiency LUT:
// (v_in, v_stor, i_in_uA, eta%).
type LUTRow4 struct {
	VIn    float64
	VStor  float64
	IInUA  float64
	EtaPct float64
}

// LUTRow3 is one row of the BQ25570 buck-converter efficiency LUT:
// (v_stor, i_out, eta).
type LUTRow3 struct {
	VStor float64
	IOut  float64
	Eta   float64
}

// LoadBoostLUT reads the 4-column boost-converter efficiency table.
func LoadBoostLUT(path string) ([]LUTRow4, error) {
	rows, err := readCSVTable(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}
	out := make([]LUTRow4, 0, len(rows))
	for _, row := range rows[1:] {
		if len(row) < 4 {
			continue
		}
		out = append(out, LUTRow4{
			VIn:    parseFloat(row[0]),
			VStor:  parseFloat(row[1]),
			IInUA:  parseFloat(row[2]),
			EtaPct: parseFloat(row[3]),
		})
	}
	return out, nil
}

// LoadBuckLUT reads the 3-column buck-converter efficiency table for a
// given v_out rail.
func LoadBuckLUT(path string) ([]LUTRow3, error) {
	rows, err := readCSVTable(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}
	out := make([]LUTRow3, 0, len(rows))
	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		out = append(out, LUTRow3{
			VStor: parseFloat(row[0]),
			IOut:  parseFloat(row[1]),
			Eta:   parseFloat(row[2]),
		})
	}
	return out, nil
}

// QuiescentRow is one row of a BQ25570 quiescent-current table, keyed by
// storage voltage.
type QuiescentRow struct {
	VStor  float64
	IQuiet float64
}

// LoadQuiescentLUT reads a 2-column (v_stor, i_quiescent) table.
func LoadQuiescentLUT(path string) ([]QuiescentRow, error) {
	rows, err := readCSVTable(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}
	out := make([]QuiescentRow, 0, len(rows))
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		out = append(out, QuiescentRow{
			VStor:  parseFloat(row[0]),
			IQuiet: parseFloat(row[1]),
		})
	}
	return out, nil
}

func parseFloat(s string) float64 {
	var v float64
	_, _ = fmt.Sscanf(s, "%g", &v)
	return v
}
