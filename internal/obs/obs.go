// Package obs converts surface and upper-air observations into LITTLE_R
// stations. Each adapter reads its own input files; a report that cannot be
// decoded is logged and skipped.
package obs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
)

// Kind names an observation type. The order of [Kinds] is the order of the
// sections in the merged output file.
type Kind string

const (
	KindRadar  Kind = "radar"
	KindMETAR  Kind = "metar"
	KindSound  Kind = "sound"
	KindSynop  Kind = "synop"
	KindRadiom Kind = "radiom"
)

// Kinds lists the LITTLE_R observation types in output order.
var Kinds = []Kind{KindMETAR, KindSound, KindSynop, KindRadiom}

// Adapter produces the stations of one observation type.
type Adapter interface {
	Kind() Kind
	Stations(ctx context.Context) ([]littler.Station, error)
}

// inputFiles returns the files in dir matching pattern, sorted. A missing
// directory yields no files.
func inputFiles(dir, pattern string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// number parses a decimal field; blanks and garbage are missing values.
func number(s string) domain.Value {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return domain.None()
	}
	return domain.Some(v)
}

func kelvin(v domain.Value) littler.Field {
	return littler.Opt(v.Map(domain.CelsiusToKelvin))
}

func pascal(v domain.Value) littler.Field {
	return littler.Opt(v.Map(domain.HectopascalToPascal))
}
