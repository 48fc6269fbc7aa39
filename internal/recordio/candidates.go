// Package recordio reads and writes the two flat record files that pass
// state between the variant-caller and read-caller stages (spec.md §6):
// a candidates file of Mendelian-inconsistent positions, and a final calls
// file of confirmed de novo calls. Both formats are grounded on the
// teacher's maf.Parser (bufio line scanning, gzip-transparent, per-line
// ParseError) generalized from tab-delimited to comma-delimited records.
// Decompression uses klauspost/compress's gzip, a drop-in for the stdlib
// package that the teacher's go.mod already pulls in (transitively, via
// go-duckdb's parquet reader) but never imports directly.
package recordio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ParseError reports a malformed line in a record file.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recordio: line %d: %s", e.Line, e.Message)
}

// Candidate is one Mendelian-inconsistent position found by the variant
// caller, awaiting read-level confirmation by the read caller.
type Candidate struct {
	Reference string
	Position  int64
}

// CandidateReader reads a candidates file, one "<reference>,<position>"
// line at a time, transparently decompressing gzip input.
type CandidateReader struct {
	reader     *bufio.Reader
	closer     io.Closer
	gzipReader *gzip.Reader
	lineNumber int
}

// OpenCandidateReader opens path for reading.
func OpenCandidateReader(path string) (*CandidateReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recordio: open candidates file: %w", err)
	}

	r := &CandidateReader{closer: file}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			r.reader = bufio.NewReader(strings.NewReader(""))
			return r, nil
		}
		return nil, fmt.Errorf("recordio: read candidates file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("recordio: seek candidates file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("recordio: create gzip reader: %w", err)
		}
		r.gzipReader = gz
		r.reader = bufio.NewReader(gz)
	} else {
		r.reader = bufio.NewReader(file)
	}

	return r, nil
}

// Next returns the next candidate, or (nil, nil) at EOF. Blank lines are
// skipped; a malformed line returns a *ParseError.
func (r *CandidateReader) Next() (*Candidate, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("recordio: read candidates line: %w", err)
		}
		atEOF := err == io.EOF
		line = strings.TrimRight(line, "\r\n")
		r.lineNumber++

		if line == "" {
			if atEOF {
				return nil, nil
			}
			continue
		}

		fields := strings.SplitN(line, ",", 2)
		if len(fields) != 2 {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("expected 2 fields, found %d", len(fields))}
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid position: %s", fields[1])}
		}
		return &Candidate{Reference: fields[0], Position: pos}, nil
	}
}

// Close closes the reader and underlying file.
func (r *CandidateReader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	return r.closer.Close()
}

// FormatCandidate renders a candidate as one "<reference>,<position>"
// line (no trailing newline — callers write through writer.LockedWriter).
func FormatCandidate(reference string, position int64) string {
	return fmt.Sprintf("%s,%d", reference, position)
}
