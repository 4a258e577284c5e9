// Package radar turns a decoded volume into a stack of geolocated samples.
//
// Each sweep is cleaned (clutter detection and replacement), its rays are
// reduced to center angles and its bins to center distances, and every
// (range, azimuth, sweep) triple is handed to a [Georeferencer].
package radar
