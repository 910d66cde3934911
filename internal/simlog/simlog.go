// Package simlog accumulates per-step simulation samples and dumps them to
// a per-component log format: one leading sweep-parameter row, followed by
// four frames (cap, load, harvester, converter), each a csvutil-encoded
// table of that component's own columns.
package simlog

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/jszwec/csvutil"

	"intermittent-sim/internal/simcore/engine"
)

// CapRow is one capacitor-frame row.
type CapRow struct {
	T     int64   `csv:"t"`
	VCap  float64 `csv:"v_cap"`
	INet  float64 `csv:"i_net"`
	Event string  `csv:"event"`
}

// HarvesterRow is one harvester-frame row.
type HarvesterRow struct {
	T     int64   `csv:"t"`
	VIn   float64 `csv:"v_in"`
	IIn   float64 `csv:"i_in"`
	EtaIn float64 `csv:"eta_in"`
}

// ConverterRow is one converter-frame row.
type ConverterRow struct {
	T      int64   `csv:"t"`
	VOut   float64 `csv:"v_out"`
	IOut   float64 `csv:"i_out"`
	EtaOut float64 `csv:"eta_out"`
	ILeak  float64 `csv:"i_leak"`
}

// LoadRow is one load-frame row.
type LoadRow struct {
	T      int64   `csv:"t"`
	VOut   float64 `csv:"v_out"`
	IOut   float64 `csv:"i_out"`
	Signal string  `csv:"signal"`
}

// Recorder implements engine.Logger, splitting each Sample into its four
// per-component rows.
type Recorder struct {
	Cap       []CapRow
	Harvester []HarvesterRow
	Converter []ConverterRow
	Load      []LoadRow
}

// NewRecorder returns an empty Recorder ready to be attached to a
// Simulation's Logger field.
func NewRecorder() *Recorder { return &Recorder{} }

var _ engine.Logger = (*Recorder)(nil)

// LogStep appends one Sample's rows to each of the four frames.
func (r *Recorder) LogStep(s engine.Sample) {
	r.Cap = append(r.Cap, CapRow{T: s.T, VCap: s.VCap, INet: s.INet, Event: s.CapEvent.String()})
	r.Harvester = append(r.Harvester, HarvesterRow{T: s.T, VIn: s.VIn, IIn: s.IIn, EtaIn: s.EtaIn})
	r.Converter = append(r.Converter, ConverterRow{T: s.T, VOut: s.VOut, IOut: s.IOut, EtaOut: s.EtaOut, ILeak: s.ILeak})
	loadSignal := "NONE"
	if s.LoadSignal != 0 {
		loadSignal = "FORCE_OFF"
	}
	r.Load = append(r.Load, LoadRow{T: s.T, VOut: s.VOut, IOut: s.IOut, Signal: loadSignal})
}

// WriteFrames dumps sweepParams as a leading key/value frame, then the
// cap/load/harvester/converter frames in that order, each frame separated
// by a blank line.
func WriteFrames(w io.Writer, sweepParams map[string]string, r *Recorder) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := writeSweepFrame(cw, sweepParams); err != nil {
		return err
	}
	if err := cw.Write(nil); err != nil {
		return err
	}

	for _, frame := range []any{r.Cap, r.Load, r.Harvester, r.Converter} {
		enc := csvutil.NewEncoder(cw)
		if err := enc.Encode(frame); err != nil {
			return err
		}
		if err := cw.Write(nil); err != nil {
			return err
		}
	}
	return cw.Error()
}

func writeSweepFrame(cw *csv.Writer, params map[string]string) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := cw.Write(keys); err != nil {
		return err
	}
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = params[k]
	}
	return cw.Write(values)
}
