// Package domain models the observations prepared for variational data
// assimilation: decoded radar volumes, the analysis window that bounds a run,
// and the sentinel conventions shared by every output record.
//
// # Radar Volumes
//
// A volume is one scan cycle of one station. It holds the completed sweeps in
// acquisition order; each sweep carries its range geometry (first bin
// distance, bin step, bin count) and one ray per azimuth with start/stop
// angles and per-bin reflectivity (dBZ) and radial velocity (m/s). Invalid
// bins are NaN from the decoder onwards.
//
// Station identifiers are the first three characters of the archive filename:
//
//	COR170608000002.RAWF1FM  ->  station "COR", 2017-06-08 00:00:02 UTC
//
// # Sentinels
//
// The assimilation text formats reserve numeric placeholders:
//
//	-888888  field not measured
//	-777777  end-of-station marker
//	 999999  no data in a regridded cell (internal; never written)
//
// Inside this module missing values are carried as [Value] with an explicit
// validity flag; sentinels only appear at the encoding boundary.
//
// # Analysis Window
//
// A run targets one analysis time T0 and a half-window Δ. Radar volumes and
// reports are eligible when their timestamp lies strictly inside
// (T0-Δ, T0+Δ).
package domain
