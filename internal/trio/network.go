// Package trio builds the three-node Bayesian network over a parent-parent-
// child trio's diploid genotypes: parent priors, the Mendelian-inheritance
// CPT for the child (with a de-novo leakage term), and the read-emission
// model shared by all three members.
package trio

import (
	"fmt"
	"math"

	"github.com/inodb/denovo-caller/internal/genotype"
)

const numGenotypes = 10

// Member identifies a node in the trio network. Serialization order is
// fixed as Dad, Mom, Child throughout the module.
type Member int8

const (
	Dad Member = iota
	Mom
	Child
)

func (m Member) String() string {
	switch m {
	case Dad:
		return "DAD"
	case Mom:
		return "MOM"
	case Child:
		return "CHILD"
	default:
		return "?"
	}
}

// Network holds the immutable CPTs for a trio, built once from (mu,
// epsilon) and shared read-only across every worker goroutine.
type Network struct {
	mu      float64
	epsilon float64

	// parentPrior[g] = P(g) for either parent, independent of the other.
	parentPrior [numGenotypes]float64

	// childCPTLog[dad][mom][child] = log P(child | dad, mom).
	childCPTLog [numGenotypes][numGenotypes][numGenotypes]float64

	// baseLL[g][b] = log P(read base b | genotype g).
	baseLL [numGenotypes][4]float64
}

// NewNetwork validates (mu, epsilon) and builds the parent prior table, the
// child CPT, and the read-emission table once. mu is the de-novo mutation
// rate (spec default 1e-8); epsilon is the sequencing error rate (spec
// default 1e-2). Returns an error for out-of-range parameters: this is a
// configuration-time mistake, not the programmer-error class in spec.md §7
// (CPT key arity), so it is reported rather than panicked.
func NewNetwork(mu, epsilon float64) (*Network, error) {
	if mu < 0 || mu >= 1 {
		return nil, fmt.Errorf("trio: de-novo mutation rate must be in [0, 1), got %v", mu)
	}
	if epsilon < 0 || epsilon >= 1 {
		return nil, fmt.Errorf("trio: sequencing error rate must be in [0, 1), got %v", epsilon)
	}

	n := &Network{mu: mu, epsilon: epsilon}
	n.buildParentPrior()
	n.buildChildCPT()
	n.buildBaseLikelihood()
	return n, nil
}

func (n *Network) buildParentPrior() {
	for _, g := range genotype.All {
		if g.IsHomozygous() {
			n.parentPrior[g] = 1.0 / 16.0
		} else {
			n.parentPrior[g] = 2.0 / 16.0
		}
	}
}

func (n *Network) buildChildCPT() {
	const mendelianCount = 4.0

	for _, dad := range genotype.All {
		for _, mom := range genotype.All {
			support := genotype.MendelianSupport(dad, mom)
			numDenovoGenotypes := numGenotypes - len(support)

			for _, child := range genotype.All {
				var p float64
				if alleleCount, ok := support[child]; ok {
					p = (1 - n.mu) * float64(alleleCount) / mendelianCount
				} else {
					p = n.mu / float64(numDenovoGenotypes)
				}
				n.childCPTLog[dad][mom][child] = math.Log(p)
			}
		}
	}
}

func (n *Network) buildBaseLikelihood() {
	eps := n.epsilon
	logErrBase := math.Log(eps / 3)
	logHomRef := math.Log(1 - eps)
	logHetRef := math.Log((1 - 2*eps/3) / 2)

	for _, g := range genotype.All {
		for b := genotype.A; b <= genotype.T; b++ {
			switch {
			case g.IsHomozygous() && g.HasAllele(b):
				n.baseLL[g][b] = logHomRef
			case g.IsHomozygous():
				n.baseLL[g][b] = logErrBase
			case g.HasAllele(b):
				n.baseLL[g][b] = logHetRef
			default:
				n.baseLL[g][b] = logErrBase
			}
		}
	}
}

// BaseLogLikelihood returns log P(read base b | genotype g). Panics if b is
// out of the allele range: an out-of-range allele indicates a bug in the
// caller, not a data condition that can arise from valid input (spec.md §7
// invariant-violation class).
func (n *Network) BaseLogLikelihood(g genotype.Genotype, b genotype.Allele) float64 {
	if b < genotype.A || b > genotype.T {
		panic(fmt.Sprintf("trio: allele %v out of range", b))
	}
	return n.baseLL[g][b]
}

// ParentPriorLog returns log P(g) for a parent genotype in isolation.
func (n *Network) ParentPriorLog(g genotype.Genotype) float64 {
	return math.Log(n.parentPrior[g])
}

// CPTLog returns the log-probability for a node's CPT entry. key must have
// length 1 (Dad or Mom, the genotype itself) or 3 (Child, as [dad, mom,
// child]); any other length is a programmer error and panics per spec.md §7.
func (n *Network) CPTLog(m Member, key []genotype.Genotype) float64 {
	switch m {
	case Dad, Mom:
		if len(key) != 1 {
			panic(fmt.Sprintf("trio: %v CPT key must have length 1, got %d", m, len(key)))
		}
		return n.ParentPriorLog(key[0])
	case Child:
		if len(key) != 3 {
			panic(fmt.Sprintf("trio: CHILD CPT key must have length 3, got %d", len(key)))
		}
		return n.childCPTLog[key[0]][key[1]][key[2]]
	default:
		panic(fmt.Sprintf("trio: unknown member %v", m))
	}
}

// Mu returns the de-novo mutation rate the network was built with.
func (n *Network) Mu() float64 { return n.mu }

// Epsilon returns the sequencing error rate the network was built with.
func (n *Network) Epsilon() float64 { return n.epsilon }
