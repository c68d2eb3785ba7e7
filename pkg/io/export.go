package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/soletide/hydrostat/pkg/body"
)

// csvHeader is the fixed column layout of the CSV export.
var csvHeader = []string{
	"radius_m", "depth_m", "pressure_mpa", "temperature_k",
	"gravity_ms2", "density_kgm3", "enclosed_mass_kg", "phase",
	"vp_ms", "vs_ms", "attenuation_q", "conductivity_sm",
}

// WriteJSON encodes a profile as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(p *body.Profile, w io.Writer) error {
	return p.Write(w)
}

// ExportJSON writes a profile to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(p *body.Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(p, f)
}

// WriteCSV writes the point table to w, one row per radius, center to
// surface. Interior and convergence metadata are not included.
func WriteCSV(p *body.Profile, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(csvHeader))
	for _, pt := range p.Points {
		row[0] = formatFloat(pt.Radius)
		row[1] = formatFloat(pt.Depth)
		row[2] = formatFloat(pt.Pressure)
		row[3] = formatFloat(pt.Temperature)
		row[4] = formatFloat(pt.Gravity)
		row[5] = formatFloat(pt.Density)
		row[6] = formatFloat(pt.EnclosedMass)
		row[7] = pt.Phase.String()
		row[8] = formatFloat(pt.VP)
		row[9] = formatFloat(pt.VS)
		row[10] = formatFloat(pt.AttenuationQ)
		row[11] = formatFloat(pt.Conductivity)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the point table to a CSV file at path.
func ExportCSV(p *body.Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(p, f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
