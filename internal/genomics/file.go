package genomics

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/variant"
)

// FileClient implements Client by reading a local multi-sample VCF (for
// ListVariants) and a simple aligned-reads fixture (for ListReads) instead
// of talking to the network. It backs tests and a --offline_fixtures_dir
// escape hatch for running the pipeline without the external service.
type FileClient struct {
	variants    []*variant.Variant
	sampleNames map[string]bool
	reads       map[string][]pileup.Alignment // keyed by read group set ID
}

// NewFileClient loads variants from vcfPath and, if readsPath is non-empty,
// aligned reads from readsPath.
func NewFileClient(vcfPath, readsPath string) (*FileClient, error) {
	ingester, err := newVCFIngester(vcfPath)
	if err != nil {
		return nil, err
	}
	defer ingester.close()

	fc := &FileClient{
		sampleNames: make(map[string]bool, len(ingester.sampleNames)),
		reads:       make(map[string][]pileup.Alignment),
	}
	for _, name := range ingester.sampleNames {
		fc.sampleNames[name] = true
	}

	for {
		v, err := ingester.next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			break
		}
		fc.variants = append(fc.variants, v)
	}

	if readsPath != "" {
		if err := fc.loadReads(readsPath); err != nil {
			return nil, err
		}
	}

	return fc, nil
}

// loadReads parses a tab-delimited fixture: readGroupSetID, reference,
// 1-based position, aligned bases (with '-' gaps), one alignment per line.
func (fc *FileClient) loadReads(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("genomics: open reads fixture: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return &ParseError{Line: lineNumber, Message: fmt.Sprintf("expected 4 columns, found %d", len(fields))}
		}
		pos, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return &ParseError{Line: lineNumber, Message: fmt.Sprintf("invalid position: %s", fields[2])}
		}
		groupID := readsKey(fields[0], fields[1])
		fc.reads[groupID] = append(fc.reads[groupID], pileup.Alignment{Position: pos, AlignedBases: fields[3]})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("genomics: scan reads fixture: %w", err)
	}
	return nil
}

func readsKey(readGroupSetID, reference string) string {
	return readGroupSetID + "\x00" + reference
}

// ListVariants implements Client by filtering the in-memory variant set.
// pageToken is a stringified offset into the filtered result; an empty
// pageSize returns everything in one page.
func (fc *FileClient) ListVariants(_ context.Context, reference string, start, end int64, callsetIDs []string, pageSize int, pageToken string) (VariantPage, error) {
	wanted := make(map[string]bool, len(callsetIDs))
	for _, id := range callsetIDs {
		wanted[id] = true
	}

	var matched []*variant.Variant
	for _, v := range fc.variants {
		if v.Reference != reference || v.Start >= end || v.End <= start {
			continue
		}
		var calls []variant.Call
		for _, c := range v.Calls {
			if wanted[c.CallsetID] {
				calls = append(calls, c)
			}
		}
		if len(calls) == 0 {
			continue
		}
		cp := *v
		cp.Calls = calls
		matched = append(matched, &cp)
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return VariantPage{}, fmt.Errorf("genomics: invalid page token %q", pageToken)
		}
		offset = n
	}
	if offset > len(matched) {
		offset = len(matched)
	}

	if pageSize <= 0 {
		return VariantPage{Variants: matched[offset:]}, nil
	}

	end2 := offset + pageSize
	if end2 > len(matched) {
		end2 = len(matched)
	}
	page := matched[offset:end2]

	nextToken := ""
	if end2 < len(matched) {
		nextToken = strconv.Itoa(end2)
	}
	return VariantPage{Variants: page, NextPageToken: nextToken}, nil
}

// ListReads implements Client by filtering the in-memory alignment
// fixture for the window [start, end).
func (fc *FileClient) ListReads(_ context.Context, readGroupSetID, reference string, start, end int64) ([]pileup.Alignment, error) {
	all := fc.reads[readsKey(readGroupSetID, reference)]
	var matched []pileup.Alignment
	for _, a := range all {
		alignedEnd := a.Position + int64(len(a.AlignedBases))
		if a.Position < end && alignedEnd > start {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// ResolveCallsetID implements Client by checking VCF sample-name
// membership; datasetID is unused since a file fixture has no dataset
// concept.
func (fc *FileClient) ResolveCallsetID(_ context.Context, _ string, callsetName string) (string, error) {
	if !fc.sampleNames[callsetName] {
		return "", fmt.Errorf("genomics: no sample named %q in VCF fixture", callsetName)
	}
	return callsetName, nil
}

// References returns the distinct reference names seen in the loaded VCF,
// in first-seen order. The CLI uses this to default --chromosome to "all
// known" (spec.md §6) when running against an offline fixture.
func (fc *FileClient) References() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, v := range fc.variants {
		if !seen[v.Reference] {
			seen[v.Reference] = true
			refs = append(refs, v.Reference)
		}
	}
	return refs
}
