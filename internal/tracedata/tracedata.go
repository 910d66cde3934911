// Package tracedata loads the file formats harvesters and converters
// consume: irradiance time-series JSON, I-V curve JSON, TEG
// tabular current data and BQ25570 LUT files. All loading happens at
// component Reset/construction time, never inside the hot loop.
package tracedata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DataFileMissingError is raised at construction when a referenced trace or
// LUT file cannot be read.
type DataFileMissingError struct {
	Path string
	Err  error
}

func (e *DataFileMissingError) Error() string {
	return fmt.Sprintf("data file missing: %s: %v", e.Path, e.Err)
}

func (e *DataFileMissingError) Unwrap() error { return e.Err }

// IrradianceHeader is the single-line JSON header of an irradiance trace
// file.
type IrradianceHeader struct {
	Type        string `json:"Type"`
	StartTime   string `json:"StartTime"`
	Season      string `json:"Season"`
	TraceLength int64  `json:"TraceLength"`
}

// IrradiancePoint is one (tick, W/m^2) sample after index has been scaled
// from seconds-from-start to ticks.
type IrradiancePoint struct {
	Tick        int64
	IrradianceW float64
}

// IrradianceTrace is a header plus an ascending, tick-indexed sample series.
type IrradianceTrace struct {
	Header  IrradianceHeader
	Samples []IrradiancePoint
}

// LoadIrradianceTrace reads an irradiance trace file: a first line of
// single-line JSON header, followed by a tabular JSON object
// {index -> {irradiance -> value}}. index (seconds-from-start) is scaled by
// 1/dtBaseSeconds into ticks.
func LoadIrradianceTrace(path string, dtBaseSeconds float64) (*IrradianceTrace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}

	nl := indexByte(raw, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("irradiance trace %s: missing header line", path)
	}
	var header IrradianceHeader
	if err := json.Unmarshal(raw[:nl], &header); err != nil {
		return nil, fmt.Errorf("irradiance trace %s: bad header: %w", path, err)
	}

	var body map[string]map[string]float64
	if err := json.Unmarshal(raw[nl+1:], &body); err != nil {
		return nil, fmt.Errorf("irradiance trace %s: bad body: %w", path, err)
	}

	samples := make([]IrradiancePoint, 0, len(body))
	for idxStr, inner := range body {
		var idxSeconds float64
		if _, err := fmt.Sscanf(idxStr, "%g", &idxSeconds); err != nil {
			return nil, fmt.Errorf("irradiance trace %s: bad index %q: %w", path, idxStr, err)
		}
		for _, v := range inner {
			samples = append(samples, IrradiancePoint{
				Tick:        int64(idxSeconds / dtBaseSeconds),
				IrradianceW: v,
			})
			break // exactly one irradiance key per index row
		}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Tick < samples[j].Tick })

	return &IrradianceTrace{Header: header, Samples: samples}, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// IVPoint is one (voltage, current) sample of an I-V curve.
type IVPoint struct {
	Voltage float64
	Current float64
}

// LoadIVCurve reads an I-V curve file: JSON mapping voltage-string to
// current value, sorted ascending by voltage with current sign taken as
// absolute.
func LoadIVCurve(path string) ([]IVPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}
	var body map[string]float64
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("iv curve %s: %w", path, err)
	}
	points := make([]IVPoint, 0, len(body))
	for vStr, i := range body {
		var v float64
		if _, err := fmt.Sscanf(vStr, "%g", &v); err != nil {
			return nil, fmt.Errorf("iv curve %s: bad voltage %q: %w", path, vStr, err)
		}
		if i < 0 {
			i = -i
		}
		points = append(points, IVPoint{Voltage: v, Current: i})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Voltage < points[j].Voltage })
	return points, nil
}

// TEGPoint is one (tick, boost_ichg_ua) sample of a TEG MPP-current trace.
type TEGPoint struct {
	Tick      int64
	BoostIChg float64 // amps (converted from microamps at load time)
}

// LoadTEGTrace reads a TEG tabular file. The reference format is a CSV
// table with columns "time_s" and "boost_ichg_ua"; this loader accepts that
// shape so the same on-disk fixtures used to validate the original Python
// tool chain can be replayed here.
func LoadTEGTrace(path string, dtBaseSeconds float64) ([]TEGPoint, error) {
	rows, err := readCSVTable(path)
	if err != nil {
		return nil, &DataFileMissingError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("teg trace %s: empty", path)
	}
	header := rows[0]
	timeCol, ichgCol := -1, -1
	for i, h := range header {
		switch h {
		case "time_s":
			timeCol = i
		case "boost_ichg_ua":
			ichgCol = i
		}
	}
	if timeCol < 0 || ichgCol < 0 {
		return nil, fmt.Errorf("teg trace %s: missing time_s/boost_ichg_ua columns", path)
	}
	points := make([]TEGPoint, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var tSeconds, iUA float64
		if _, err := fmt.Sscanf(row[timeCol], "%g", &tSeconds); err != nil {
			continue
		}
		if _, err := fmt.Sscanf(row[ichgCol], "%g", &iUA); err != nil {
			continue
		}
		points = append(points, TEGPoint{
			Tick:      int64(tSeconds / dtBaseSeconds),
			BoostIChg: iUA * 1e-6,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Tick < points[j].Tick })
	return points, nil
}
