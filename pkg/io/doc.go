// Package io provides import and export of assembled radial profiles.
//
// # Overview
//
// This package serializes profiles to and from files in two formats:
//
//   - JSON: the full profile including interior summary and run metadata,
//     round-trippable with [ImportJSON]
//   - CSV: the point table only, one row per radius, for plotting tools
//     and spreadsheet analysis
//
// # JSON
//
// Use [ExportJSON] to write a profile to a file, or [WriteJSON] to write to
// any io.Writer:
//
//	err := io.ExportJSON(profile, "europa.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// [ImportJSON] and [ReadJSON] reverse the operation and validate the ordering
// invariants of the decoded profile, so a hand-edited file that breaks the
// center-to-surface ordering is rejected at load time.
//
// # CSV
//
// [ExportCSV] and [WriteCSV] emit the point table with a fixed header row.
// Radii are ordered center to surface, matching the profile. The derived
// seismic and conductivity columns are present even when zero so the column
// layout is stable across runs.
//
// CSV export is one way only; the interior summary and convergence metadata
// are not representable in the table and cannot be re-imported.
package io
