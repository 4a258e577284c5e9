package littler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// RadarDocument is a parsed radar text file.
type RadarDocument struct {
	Total  int
	Blocks []RadarBlock
}

// RadarBlock is one station block with the counts its lines declare.
type RadarBlock struct {
	Line           int
	Station        RadarStation
	DeclaredCells  int
	DeclaredLevels []int
}

// Check compares the declared counts with the parsed content.
func (b RadarBlock) Check() error {
	if b.DeclaredCells != len(b.Station.Cells) {
		return fmt.Errorf("station %s declares %d cells, has %d", b.Station.Name, b.DeclaredCells, len(b.Station.Cells))
	}
	for i, c := range b.Station.Cells {
		if b.DeclaredLevels[i] != len(c.Levels) {
			return fmt.Errorf("station %s cell %d declares %d levels, has %d", b.Station.Name, i, b.DeclaredLevels[i], len(c.Levels))
		}
	}
	return nil
}

// ReadRadar parses a radar text stream written by [RadarFile].
func ReadRadar(r io.Reader) (RadarDocument, error) {
	var doc RadarDocument
	sc := bufio.NewScanner(r)
	p := &parser{}

	if !sc.Scan() {
		return doc, fmt.Errorf("%w: empty radar file", ErrLayout)
	}
	cols, err := Split(sc.Text(), []int{14, 3})
	if err != nil || cols[0] != "TOTAL NUMBER =" {
		return doc, fmt.Errorf("%w: line 1 is not a TOTAL NUMBER preamble", ErrLayout)
	}
	doc.Total = p.int(cols[1])

	var block *RadarBlock
	n := 1
	for sc.Scan() {
		n++
		line := sc.Text()
		switch {
		case strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "RADAR"):
			cols, err := Split(line, RadarHeaderWidths)
			if err != nil {
				return doc, fmt.Errorf("line %d radar header: %w", n, err)
			}
			date, err := time.Parse(radarDateLayout, strings.TrimSpace(cols[9]))
			if err != nil {
				p.fail(fmt.Errorf("line %d date: %w", n, err))
			}
			doc.Blocks = append(doc.Blocks, RadarBlock{
				Line: n,
				Station: RadarStation{
					Name:      strings.TrimSpace(cols[2]),
					Longitude: p.float(cols[3]),
					Latitude:  p.float(cols[5]),
					Elevation: p.float(cols[7]),
					Date:      date,
					Sweeps:    p.int(cols[11]),
				},
				DeclaredCells: p.int(cols[10]),
			})
			block = &doc.Blocks[len(doc.Blocks)-1]
		case block == nil:
			return doc, fmt.Errorf("%w: line %d precedes any station header", ErrLayout, n)
		case strings.HasPrefix(line, PlatformRadar):
			cols, err := Split(line, RadarCellWidths)
			if err != nil {
				return doc, fmt.Errorf("line %d cell: %w", n, err)
			}
			block.Station.Cells = append(block.Station.Cells, RadarCell{
				Latitude:  p.float(cols[4]),
				Longitude: p.float(cols[6]),
			})
			block.DeclaredLevels = append(block.DeclaredLevels, p.int(cols[10]))
		default:
			if len(block.Station.Cells) == 0 {
				return doc, fmt.Errorf("%w: line %d level precedes any cell", ErrLayout, n)
			}
			cols, err := Split(line, RadarLevelWidths)
			if err != nil {
				return doc, fmt.Errorf("line %d level: %w", n, err)
			}
			cell := &block.Station.Cells[len(block.Station.Cells)-1]
			cell.Levels = append(cell.Levels, RadarLevel{
				Height:            p.float(cols[1]),
				Velocity:          p.float(cols[2]),
				VelocityQC:        p.int(cols[3]),
				VelocityError:     p.float(cols[4]),
				Reflectivity:      p.float(cols[6]),
				ReflectivityQC:    p.int(cols[7]),
				ReflectivityError: p.float(cols[8]),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return doc, fmt.Errorf("read radar: %w", err)
	}
	if p.err != nil {
		return doc, fmt.Errorf("parse radar: %w", p.err)
	}
	return doc, nil
}
