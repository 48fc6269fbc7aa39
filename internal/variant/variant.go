// Package variant is the record-level data model shared by the variant
// caller and read caller stages: a Variant carries a reference span and
// alternate alleles, a Call assigns a genotype to one trio member via
// indices into [ref]++alternates (spec.md §3).
package variant

import (
	"fmt"

	"github.com/inodb/denovo-caller/internal/genotype"
	"github.com/inodb/denovo-caller/internal/trio"
)

// FilterPass is the only FILTER value that makes a Call eligible.
const FilterPass = "PASS"

// Variant is a single reference-relative record: either a single-base SNV
// call or a gVCF reference-confidence block. Positions are 1-based,
// End is exclusive (SPEC_FULL.md §1): for an SNV, End == Start+1.
type Variant struct {
	Reference  string
	Start      int64
	End        int64
	RefBases   string
	AltBases   []string // alternate alleles, index 1..n in a Call
	CallsetID  string
	Calls      []Call
}

// Call is a per-sample genotype assignment: two indices into
// [RefBases] ++ AltBases (0 = ref, >=1 = alt), plus the INFO map a real
// caller would attach (FILTER in particular).
type Call struct {
	CallsetID string
	Indices   [2]int
	Info      map[string]string
}

// Filter returns the call's FILTER value, or "" if unset.
func (c Call) Filter() string {
	return c.Info["FILTER"]
}

// IsSNV reports whether v is a single-base substitution record: End ==
// Start+1, a single reference base, and every alternate allele a single
// base (spec.md §3).
func (v *Variant) IsSNV() bool {
	if v.End != v.Start+1 || len(v.RefBases) != 1 {
		return false
	}
	for _, alt := range v.AltBases {
		if len(alt) != 1 {
			return false
		}
	}
	return true
}

// IsReferenceBlock reports whether v asserts homozygous reference over a
// half-open span without alternate alleles (a gVCF reference block).
func (v *Variant) IsReferenceBlock() bool {
	return len(v.AltBases) == 0 && v.End > v.Start
}

// HasIndel reports whether v calls an insertion (an alt longer than one
// base) or a deletion (a reference longer than one base). Such records
// are out of scope per spec.md §1 and are rejected at admission.
func (v *Variant) HasIndel() bool {
	if len(v.RefBases) > 1 {
		return true
	}
	for _, alt := range v.AltBases {
		if len(alt) > 1 {
			return true
		}
	}
	return false
}

// AlleleBases returns the base string for allele index i (0 = ref, i>=1 =
// AltBases[i-1]).
func (v *Variant) AlleleBases(i int) (string, error) {
	if i == 0 {
		return v.RefBases, nil
	}
	if i-1 < 0 || i-1 >= len(v.AltBases) {
		return "", fmt.Errorf("variant: allele index %d out of range for %d alternates", i, len(v.AltBases))
	}
	return v.AltBases[i-1], nil
}

// IsEligible applies the trio-agnostic admission filters from spec.md §4.5
// steps 1-3, 5: no missing ("dot", -1) index, exactly two indices
// (biallelic diploid), FILTER == PASS, and no insertion/deletion.
func (c Call) IsEligible(v *Variant) bool {
	if c.Indices[0] < 0 || c.Indices[1] < 0 {
		return false
	}
	if c.Filter() != FilterPass {
		return false
	}
	if v.HasIndel() {
		return false
	}
	return true
}

// ResolveGenotype decodes the Genotype a Call implies at v, given that v
// is itself an SNV: the two indices select bases from [RefBases]++AltBases
// which FromPair then canonicalizes.
func ResolveGenotype(v *Variant, c Call) (genotype.Genotype, error) {
	var alleles [2]genotype.Allele
	for i, idx := range c.Indices {
		bases, err := v.AlleleBases(idx)
		if err != nil {
			return 0, err
		}
		if len(bases) != 1 {
			return 0, fmt.Errorf("variant: allele %q at index %d is not a single base", bases, idx)
		}
		a, ok := genotype.ParseAllele(bases[0])
		if !ok {
			return 0, fmt.Errorf("variant: base %q is not A/C/G/T", bases)
		}
		alleles[i] = a
	}
	return genotype.FromPair(alleles[0], alleles[1]), nil
}

// ReferenceGenotype returns the implied homozygous-reference genotype for
// a gVCF reference block, using refBase (the child's reference base at the
// position being resolved — spec.md §4.5).
func ReferenceGenotype(refBase byte) (genotype.Genotype, error) {
	a, ok := genotype.ParseAllele(refBase)
	if !ok {
		return 0, fmt.Errorf("variant: reference base %q is not A/C/G/T", refBase)
	}
	return genotype.FromPair(a, a), nil
}

// Member is an alias for trio.Member so the variant model does not define
// a second, redundant {DAD, MOM, CHILD} enumeration.
type Member = trio.Member

const (
	Dad   = trio.Dad
	Mom   = trio.Mom
	Child = trio.Child
)
