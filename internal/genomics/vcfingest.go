package genomics

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/denovo-caller/internal/variant"
)

// ParseError reports a malformed line in a VCF ingest file, keeping the
// line number for the caller to log (spec.md §7, data-anomaly class).
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// vcfIngester reads a multi-sample VCF into Variant/Call records. It is
// the teacher's internal/vcf.Parser generalized from a single Ref/Alt pair
// per row to the spec's multi-alt, multi-sample, index-based genotype
// model (spec.md §3): every sample column becomes one Call, carrying a
// CallsetID equal to its VCF sample name and the row's FILTER value.
type vcfIngester struct {
	reader      *bufio.Reader
	closer      io.Closer
	gzipReader  *gzip.Reader
	lineNumber  int
	sampleNames []string
}

func newVCFIngester(path string) (*vcfIngester, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("genomics: open vcf fixture: %w", err)
	}

	p := &vcfIngester{closer: file}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("genomics: read vcf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("genomics: seek vcf fixture: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("genomics: create gzip reader: %w", err)
		}
		p.gzipReader = gz
		p.reader = bufio.NewReader(gz)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *vcfIngester) close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	return p.closer.Close()
}

func (p *vcfIngester) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("genomics: read vcf header: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}
		return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
	}
	return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
}

// next reads the next row, or (nil, nil) at EOF. Blank lines are skipped.
func (p *vcfIngester) next() (*variant.Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("genomics: read vcf line: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *vcfIngester) parseLine(line string) (*variant.Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields))}
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid position: %s", fields[1])}
	}

	ref := fields[3]
	var alts []string
	if fields[4] != "." {
		alts = strings.Split(fields[4], ",")
	}

	info := parseInfo(fields[7])
	end := start + int64(len(ref))
	if len(alts) == 0 {
		// gVCF reference block: END= gives the last covered position explicitly.
		if endStr, ok := info["END"]; ok {
			if endVal, err := strconv.ParseInt(endStr, 10, 64); err == nil {
				end = endVal + 1 // VCF END is 1-based inclusive; our End is exclusive.
			}
		}
	}

	v := &variant.Variant{
		Reference: fields[0],
		Start:     start,
		End:       end,
		RefBases:  ref,
		AltBases:  alts,
	}

	filter := fields[6]
	if len(fields) > 9 && len(p.sampleNames) > 0 {
		format := strings.Split(fields[8], ":")
		gtIdx := indexOf(format, "GT")
		if gtIdx < 0 {
			return nil, &ParseError{Line: p.lineNumber, Message: "FORMAT column missing GT"}
		}

		samples := fields[9:]
		v.Calls = make([]variant.Call, 0, len(samples))
		for i, sample := range samples {
			if i >= len(p.sampleNames) {
				break
			}
			sampleFields := strings.Split(sample, ":")
			if gtIdx >= len(sampleFields) {
				continue
			}
			indices, err := parseGT(sampleFields[gtIdx])
			if err != nil {
				return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
			}
			v.Calls = append(v.Calls, variant.Call{
				CallsetID: p.sampleNames[i],
				Indices:   indices,
				Info:      map[string]string{"FILTER": filter},
			})
		}
	}

	return v, nil
}

func indexOf(fields []string, want string) int {
	for i, f := range fields {
		if f == want {
			return i
		}
	}
	return -1
}

// parseGT decodes a VCF GT field ("0/1", "1|1", "./.") into the two allele
// indices; a missing ("dot") allele becomes -1 per spec.md §4.5.
func parseGT(gt string) (indices [2]int, err error) {
	gt = strings.ReplaceAll(gt, "|", "/")
	parts := strings.SplitN(gt, "/", 2)
	if len(parts) != 2 {
		return indices, fmt.Errorf("malformed GT %q", gt)
	}
	for i, p := range parts {
		if p == "." {
			indices[i] = -1
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return indices, fmt.Errorf("malformed GT allele %q", p)
		}
		indices[i] = n
	}
	return indices, nil
}

func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == "." || info == "" {
		return result
	}
	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			result[parts[0]] = "true"
		}
	}
	return result
}
