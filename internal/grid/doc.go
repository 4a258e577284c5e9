// Package grid aggregates geolocated radar samples onto a regular 9 km
// lon/lat grid and estimates per-cell observation errors.
//
// Cells are half-open, [lon_i, lon_i+1) x [lat_j, lat_j+1). A cell level is
// valid only when it received at least one sample and both the reflectivity
// and the velocity means are finite. Invalid cell levels hold
// [domain.NoData] in every variable and are flagged in the validity masks.
package grid
