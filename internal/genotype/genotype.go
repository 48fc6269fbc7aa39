// Package genotype implements the diploid SNV genotype and allele model:
// enumeration of the ten unordered genotypes, zygosity classification, and
// the precomputed Mendelian de-novo table shared by every trio in the
// module.
package genotype

import "fmt"

// Allele is one of the four SNV bases, ordered A < C < G < T. The order is
// used only to canonicalize unordered pairs into a single Genotype.
type Allele int8

const (
	A Allele = iota
	C
	G
	T
	numAlleles = 4
)

// String returns the single-character base code.
func (a Allele) String() string {
	switch a {
	case A:
		return "A"
	case C:
		return "C"
	case G:
		return "G"
	case T:
		return "T"
	default:
		return "?"
	}
}

// ParseAllele maps a base character to an Allele. ok is false for any byte
// that is not A, C, G, or T (including the gap character '-').
func ParseAllele(b byte) (Allele, bool) {
	switch b {
	case 'A', 'a':
		return A, true
	case 'C', 'c':
		return C, true
	case 'G', 'g':
		return G, true
	case 'T', 't':
		return T, true
	default:
		return 0, false
	}
}

// Genotype is one of the ten unordered diploid SNV genotypes.
type Genotype int8

const (
	AA Genotype = iota
	AC
	AG
	AT
	CC
	CG
	CT
	GG
	GT
	TT
	numGenotypes = 10

	// NumGenotypes is the number of distinct diploid SNV genotypes (10).
	NumGenotypes = numGenotypes
)

var genotypeNames = [numGenotypes]string{"AA", "AC", "AG", "AT", "CC", "CG", "CT", "GG", "GT", "TT"}

func (g Genotype) String() string {
	if g < 0 || int(g) >= numGenotypes {
		return "??"
	}
	return genotypeNames[g]
}

// All is the fixed enumeration order of the ten genotypes, used by the
// inference engine's 10x10x10 joint search.
var All = [numGenotypes]Genotype{AA, AC, AG, AT, CC, CG, CT, GG, GT, TT}

// pairTable[a][b] == pairTable[b][a] == canonical Genotype for {a, b}.
var pairTable [numAlleles][numAlleles]Genotype

// allelesTable[g] holds the two alleles making up g, sorted by allele index.
var allelesTable [numGenotypes][2]Allele

func init() {
	idx := 0
	for a := Allele(0); a < numAlleles; a++ {
		for b := a; b < numAlleles; b++ {
			g := Genotype(idx)
			pairTable[a][b] = g
			pairTable[b][a] = g
			allelesTable[g] = [2]Allele{a, b}
			idx++
		}
	}
	if idx != numGenotypes {
		panic(fmt.Sprintf("genotype: built %d genotypes, want %d", idx, numGenotypes))
	}
	buildDenovoTable()
}

// FromPair canonicalizes an unordered allele pair into its Genotype. Total:
// FromPair(a, b) == FromPair(b, a) for every a, b.
func FromPair(a, b Allele) Genotype {
	return pairTable[a][b]
}

// Alleles returns the two alleles making up g, sorted by allele index.
func (g Genotype) Alleles() [2]Allele {
	return allelesTable[g]
}

// IsHomozygous reports whether both alleles of g are identical.
func (g Genotype) IsHomozygous() bool {
	a := allelesTable[g]
	return a[0] == a[1]
}

// HasAllele reports whether g carries the given allele.
func (g Genotype) HasAllele(a Allele) bool {
	pair := allelesTable[g]
	return pair[0] == a || pair[1] == a
}

// denovoTable[dad][mom][child] is true iff no selection of one allele from
// dad and one from mom reproduces child's allele pair (in either order).
// Precomputed once at init so IsDenovo is an O(1) lookup on the caller's
// hot path (C6 tests this predicate for every candidate position).
var denovoTable [numGenotypes][numGenotypes][numGenotypes]bool

func buildDenovoTable() {
	for _, dad := range All {
		dadAlleles := dad.Alleles()
		for _, mom := range All {
			momAlleles := mom.Alleles()

			mendelian := map[Genotype]bool{}
			for _, da := range dadAlleles {
				for _, ma := range momAlleles {
					mendelian[FromPair(da, ma)] = true
				}
			}

			for _, child := range All {
				denovoTable[dad][mom][child] = !mendelian[child]
			}
		}
	}
}

// IsDenovo reports whether child cannot be explained by drawing one allele
// from dad and one from mom. Symmetric in (dad, mom) and invariant under
// swapping the two alleles that make up child, since both inputs are
// already canonicalized Genotype values.
func IsDenovo(dad, mom, child Genotype) bool {
	return denovoTable[dad][mom][child]
}

// MendelianSupport returns, for a given (dad, mom) pair, the set of child
// genotypes reachable by drawing one allele from each parent, and the
// number of the four (2x2) draws that produce each. Used by the trio CPT
// to weight Mendelian-consistent child genotypes by how many of the four
// parental allele combinations produce them.
func MendelianSupport(dad, mom Genotype) (counts map[Genotype]int) {
	counts = make(map[Genotype]int, 4)
	dadAlleles := dad.Alleles()
	momAlleles := mom.Alleles()
	for _, da := range dadAlleles {
		for _, ma := range momAlleles {
			counts[FromPair(da, ma)]++
		}
	}
	return counts
}
