// Package littler writes and reads the fixed-column observation formats
// consumed by the assimilation solver.
//
// A LITTLE_R station is a 600-column header, one 200-column data record per
// vertical level, an end-of-station record and a valid-field trailer line.
// Every adapter builds a [Station] and hands it to [Encode]; the encoder owns
// the column layout and the valid-field tally.
//
// Radar observations use the WRFDA radar text layout instead, written by
// [EncodeRadar]. [ObsFile] and [RadarFile] wrap both encoders with one
// output file per run.
package littler
