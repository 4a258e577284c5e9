package littler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ObsFile is the merged LITTLE_R output of one run. Stations are appended
// in call order; Close must be called exactly once.
type ObsFile struct {
	path     string
	f        *os.File
	w        *bufio.Writer
	stations int
	fields   int
}

// CreateObsFile truncates or creates path.
func CreateObsFile(path string) (*ObsFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create observation file: %w", err)
	}
	return &ObsFile{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Write encodes one station and returns its valid-field count.
func (o *ObsFile) Write(st Station) (int, error) {
	n, err := Encode(o.w, st)
	if err != nil {
		return 0, err
	}
	o.stations++
	o.fields += n
	return n, nil
}

// EndSection separates the stations of one observation type from the next.
func (o *ObsFile) EndSection() error {
	return o.w.WriteByte('\n')
}

// Path is the output file location.
func (o *ObsFile) Path() string { return o.path }

// Stations is the number of stations written so far.
func (o *ObsFile) Stations() int { return o.stations }

// Fields is the total valid-field count written so far.
func (o *ObsFile) Fields() int { return o.fields }

// Close flushes and closes the file.
func (o *ObsFile) Close() error {
	return errors.Join(o.w.Flush(), o.f.Close())
}

// RadarFile is the radar text output of one run. Its preamble carries the
// number of stations actually written, so the body is staged in a temporary
// file and assembled on Close.
type RadarFile struct {
	path     string
	body     *os.File
	w        *bufio.Writer
	stations int
}

// CreateRadarFile stages a radar output file at path.
func CreateRadarFile(path string) (*RadarFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	body, err := os.CreateTemp(dir, ".radar-body-*")
	if err != nil {
		return nil, fmt.Errorf("stage radar file: %w", err)
	}
	return &RadarFile{path: path, body: body, w: bufio.NewWriter(body)}, nil
}

// Write appends one station block and returns its valid-field count.
func (r *RadarFile) Write(st RadarStation) (int, error) {
	n, err := EncodeRadar(r.w, st)
	if err != nil {
		return 0, err
	}
	r.stations++
	return n, nil
}

// Path is the output file location.
func (r *RadarFile) Path() string { return r.path }

// Stations is the number of stations written so far.
func (r *RadarFile) Stations() int { return r.stations }

// Close writes the preamble with the final station count followed by the
// staged body, then removes the staging file.
func (r *RadarFile) Close() error {
	defer os.Remove(r.body.Name())

	if err := r.w.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush radar body: %w", err), r.body.Close())
	}
	if _, err := r.body.Seek(0, io.SeekStart); err != nil {
		return errors.Join(fmt.Errorf("rewind radar body: %w", err), r.body.Close())
	}

	tmp := r.path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return errors.Join(fmt.Errorf("create radar file: %w", err), r.body.Close())
	}
	w := bufio.NewWriter(out)
	err = EncodeRadarPreamble(w, r.stations)
	if err == nil {
		_, err = io.Copy(w, r.body)
	}
	if err == nil {
		err = w.Flush()
	}
	err = errors.Join(err, out.Close(), r.body.Close())
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("assemble radar file: %w", err)
	}
	return os.Rename(tmp, r.path)
}
