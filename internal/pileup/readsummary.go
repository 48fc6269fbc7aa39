// Package pileup builds per-position allele-count summaries from aligned
// reads, the input the inference engine scores trio genotypes against.
package pileup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/denovo-caller/internal/genotype"
)

// Alignment is the subset of a read alignment this package needs: the
// 1-based reference start of the aligned substring and the aligned bases
// themselves, with '-' marking a gap. This mirrors the remote-service
// alignment shape in spec.md §6 (position + aligned_bases).
type Alignment struct {
	Position     int64
	AlignedBases string
}

// Summary is a nonnegative allele count at a single reference position. It
// never holds a zero-valued entry: a base that is never observed is simply
// absent from the map.
type Summary map[genotype.Allele]int

// Add increments the count for a, creating the entry if absent.
func (s Summary) Add(a genotype.Allele) {
	s[a]++
}

// Total returns the sum of all allele counts.
func (s Summary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Merge folds other's counts into s.
func (s Summary) Merge(other Summary) {
	for a, n := range other {
		s[a] += n
	}
}

// String renders counts in "A=40,C=2" form, alleles in enumeration order,
// matching the readCounts= field of the final calls file (spec.md §6).
func (s Summary) String() string {
	var parts []string
	for a := genotype.A; a <= genotype.T; a++ {
		if n, ok := s[a]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", a, n))
		}
	}
	sort.Strings(parts) // alleles are already in A,C,G,T order via the loop above; Strings is a no-op safety net
	return strings.Join(parts, ",")
}

// BuildSummary computes the ReadSummary at reference position p (1-based)
// from a set of aligned reads. offset = p - read.Position; offsets outside
// the aligned substring, gap characters, and any byte that is not
// A/C/G/T/- are silently skipped (spec.md §4.2).
func BuildSummary(reads []Alignment, p int64) Summary {
	s := make(Summary)
	for _, r := range reads {
		offset := p - r.Position
		if offset < 0 || offset >= int64(len(r.AlignedBases)) {
			continue
		}
		base := r.AlignedBases[offset]
		if base == '-' {
			continue
		}
		a, ok := genotype.ParseAllele(base)
		if !ok {
			continue
		}
		s.Add(a)
	}
	return s
}
