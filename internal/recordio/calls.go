package recordio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/denovo-caller/internal/infer"
	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/trio"
)

// Call is one confirmed de novo call, as written to the final calls file.
type Call struct {
	Reference string
	Position  int64
	Reads     map[trio.Member]pileup.Summary
	Result    infer.Result
}

// FormatCall renders a call as
// "<reference>,<position>,readCounts=DAD:{A=10};MOM:{A=9,G=1};CHILD:{A=5,G=5},maxGenoType=[AA, AA, AG],isDenovo=<bool>,bayesProb=<float>,logLR=<float>"
// per spec.md §6's literal final-calls format, using each member's
// pileup.Summary.String() for the brace-wrapped per-member counts (no
// trailing newline — callers write through writer.LockedWriter).
func FormatCall(c Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s,%d,readCounts=DAD:{%s};MOM:{%s};CHILD:{%s},maxGenoType=[%s, %s, %s],isDenovo=%t,bayesProb=%s,logLR=%s",
		c.Reference, c.Position,
		formatSummary(c.Reads[trio.Dad]),
		formatSummary(c.Reads[trio.Mom]),
		formatSummary(c.Reads[trio.Child]),
		c.Result.Argmax.Dad, c.Result.Argmax.Mom, c.Result.Argmax.Child,
		c.Result.IsDenovo,
		strconv.FormatFloat(c.Result.BayesProb, 'f', 6, 64),
		strconv.FormatFloat(c.Result.LogLR, 'f', 6, 64),
	)
	return b.String()
}

func formatSummary(s pileup.Summary) string {
	if s == nil {
		return ""
	}
	return s.String()
}
