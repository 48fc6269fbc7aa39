// Package infer implements the trio inference engine: joint enumeration
// over the 10^3 trio genotype assignments, and the MAP, posterior-Bayes,
// and likelihood-ratio decision rules built on top of it.
package infer

import (
	"fmt"
	"math"
	"strings"

	"github.com/inodb/denovo-caller/internal/genotype"
	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/trio"
)

// Method selects the decision rule applied to the joint enumeration.
type Method string

const (
	MAP   Method = "MAP"
	BAYES Method = "BAYES"
	LRT   Method = "LRT"
)

// ParseMethod validates a --inference_method flag value.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(s)); m {
	case MAP, BAYES, LRT:
		return m, nil
	default:
		return "", fmt.Errorf("infer: unknown inference method %q (want MAP, BAYES, or LRT)", s)
	}
}

// Engine holds an immutable trio.Network and the LRT threshold, shared
// read-only across every worker goroutine per spec.md §5.
type Engine struct {
	net          *trio.Network
	lrtThreshold float64
}

// NewEngine builds an inference engine over net with the given LRT
// threshold, compared directly against logLR = denovoLL - mendelianLL
// (spec default 1.0; see SPEC_FULL.md §1).
func NewEngine(net *trio.Network, lrtThreshold float64) *Engine {
	return &Engine{net: net, lrtThreshold: lrtThreshold}
}

// Triple is an assignment of genotypes to (dad, mom, child).
type Triple struct {
	Dad, Mom, Child genotype.Genotype
}

func (t Triple) String() string {
	return fmt.Sprintf("[%v, %v, %v]", t.Dad, t.Mom, t.Child)
}

// Result is the engine's verdict for one trio at one position.
type Result struct {
	Argmax      Triple
	IsDenovo    bool
	MendelianLL float64 // log(expSum_mendel)
	DenovoLL    float64 // log(expSum_denovo)
	BayesProb   float64 // expSum_denovo / (expSum_denovo + expSum_mendel)
	LogLR       float64 // DenovoLL - MendelianLL
}

// Infer runs the joint enumeration over all 1000 trio genotype
// assignments and applies method to decide isDenovo. reads must have an
// entry for trio.Dad, trio.Mom, and trio.Child.
func (e *Engine) Infer(reads map[trio.Member]pileup.Summary, method Method) (Result, error) {
	for _, m := range [...]trio.Member{trio.Dad, trio.Mom, trio.Child} {
		if _, ok := reads[m]; !ok {
			return Result{}, fmt.Errorf("infer: missing ReadSummary for %v", m)
		}
	}

	indivLL := map[trio.Member][genotype.NumGenotypes]float64{
		trio.Dad:   individualLogLikelihoods(e.net, reads[trio.Dad]),
		trio.Mom:   individualLogLikelihoods(e.net, reads[trio.Mom]),
		trio.Child: individualLogLikelihoods(e.net, reads[trio.Child]),
	}

	type scored struct {
		triple Triple
		ll     float64
	}

	all := make([]scored, 0, len(genotype.All)*len(genotype.All)*len(genotype.All))
	maxLL := math.Inf(-1)

	for _, dad := range genotype.All {
		dadLL := indivLL[trio.Dad][dad] + e.net.CPTLog(trio.Dad, []genotype.Genotype{dad})
		for _, mom := range genotype.All {
			momLL := indivLL[trio.Mom][mom] + e.net.CPTLog(trio.Mom, []genotype.Genotype{mom})
			for _, child := range genotype.All {
				childLL := indivLL[trio.Child][child] + e.net.CPTLog(trio.Child, []genotype.Genotype{dad, mom, child})
				ll := dadLL + momLL + childLL

				all = append(all, scored{Triple{dad, mom, child}, ll})
				if ll > maxLL {
					maxLL = ll
				}
			}
		}
	}

	var argmax Triple
	argmaxLL := math.Inf(-1)
	var sumDenovo, sumMendel float64

	for _, s := range all {
		if s.ll > argmaxLL {
			argmaxLL = s.ll
			argmax = s.triple
		}

		// log-sum-exp: subtract maxLL before exponentiating to avoid
		// underflow for deep-coverage reads (spec.md §4.4, §9).
		weight := math.Exp(s.ll - maxLL)
		if genotype.IsDenovo(s.triple.Dad, s.triple.Mom, s.triple.Child) {
			sumDenovo += weight
		} else {
			sumMendel += weight
		}
	}

	mendelianLL := maxLL + math.Log(sumMendel)
	denovoLL := maxLL + math.Log(sumDenovo)
	bayesProb := sumDenovo / (sumDenovo + sumMendel)
	logLR := denovoLL - mendelianLL

	var isDenovo bool
	switch method {
	case MAP:
		isDenovo = genotype.IsDenovo(argmax.Dad, argmax.Mom, argmax.Child)
	case BAYES:
		isDenovo = bayesProb > 0.5
	case LRT:
		isDenovo = logLR > e.lrtThreshold
	default:
		return Result{}, fmt.Errorf("infer: unknown method %q", method)
	}

	return Result{
		Argmax:      argmax,
		IsDenovo:    isDenovo,
		MendelianLL: mendelianLL,
		DenovoLL:    denovoLL,
		BayesProb:   bayesProb,
		LogLR:       logLR,
	}, nil
}

func individualLogLikelihoods(net *trio.Network, reads pileup.Summary) [genotype.NumGenotypes]float64 {
	var ll [genotype.NumGenotypes]float64
	for _, g := range genotype.All {
		var sum float64
		for allele, count := range reads {
			sum += float64(count) * net.BaseLogLikelihood(g, allele)
		}
		ll[g] = sum
	}
	return ll
}
