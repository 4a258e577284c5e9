package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DefaultPattern matches archive names such as COR170608000002.RAWF1FM or
// COR170608000002.nc: a three-character station prefix followed by a
// yymmddHHMMSS timestamp.
const DefaultPattern = `^(?P<station>[A-Z0-9]{3})(?P<stamp>\d{12})\.`

const stampLayout = "060102150405"

// Listing is one item reported by an archive source.
type Listing struct {
	Name string
	Ref  string // source-specific locator: path, URL or object key
}

// Entry is a listing with its parsed station and timestamp.
type Entry struct {
	Name    string
	Station string
	Time    time.Time
	Ref     string
}

// NameParser extracts station and timestamp from archive filenames.
type NameParser struct {
	re      *regexp.Regexp
	station int
	stamp   int
}

// NewNameParser compiles pattern, which must define the named groups
// "station" and "stamp".
func NewNameParser(pattern string) (*NameParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile file pattern: %w", err)
	}
	p := &NameParser{re: re, station: re.SubexpIndex("station"), stamp: re.SubexpIndex("stamp")}
	if p.station < 0 || p.stamp < 0 {
		return nil, errors.New("file pattern must define (?P<station>...) and (?P<stamp>...) groups")
	}
	return p, nil
}

// Parse converts a listing into an entry.
func (p *NameParser) Parse(l Listing) (Entry, error) {
	m := p.re.FindStringSubmatch(l.Name)
	if m == nil {
		return Entry{}, fmt.Errorf("parse archive name %q: no match", l.Name)
	}
	t, err := time.Parse(stampLayout, m[p.stamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parse archive name %q: %w", l.Name, err)
	}
	return Entry{Name: l.Name, Station: m[p.station], Time: t, Ref: l.Ref}, nil
}
