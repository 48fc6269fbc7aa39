// Package buffer assembles co-located trio genotype calls out of three
// independently-advancing per-person variant streams (spec.md §4.5). Each
// trio member's stream may deliver single-base SNV calls or gVCF
// reference-confidence blocks spanning hundreds of bases; VariantsBuffer
// holds each member's pending records in order and matches a child SNV
// position against whichever parent record currently covers it.
package buffer

import (
	"fmt"

	"github.com/inodb/denovo-caller/internal/genotype"
	"github.com/inodb/denovo-caller/internal/trio"
	"github.com/inodb/denovo-caller/internal/variant"
)

// entry pairs a Variant with the Call it carries for one trio member.
type entry struct {
	v *variant.Variant
	c variant.Call
}

// State classifies a member queue relative to the most recent child start
// seen: Empty holds nothing, Buffering holds entries that start after the
// most recent child position (too early to match or evict), Matured holds
// a front entry eligible for matching or eviction.
type State int

const (
	Empty State = iota
	Buffering
	Matured
)

// PositionCall is a fully-resolved trio genotype at one child SNV
// position, ready for the Mendelian check in the variant caller stage.
type PositionCall struct {
	Reference string
	Position  int64
	Dad       genotype.Genotype
	Mom       genotype.Genotype
	Child     genotype.Genotype
}

// Buffer is a per-contig VariantsBuffer. It is not safe for concurrent use
// by multiple goroutines; each contig/sub-range worker owns one.
type Buffer struct {
	reference       string
	queues          map[trio.Member][]entry
	mostRecentStart map[trio.Member]int64
}

// New creates an empty buffer for one contig.
func New(reference string) *Buffer {
	return &Buffer{
		reference: reference,
		queues: map[trio.Member][]entry{
			trio.Dad:   nil,
			trio.Mom:   nil,
			trio.Child: nil,
		},
		mostRecentStart: map[trio.Member]int64{
			trio.Dad:   -1,
			trio.Mom:   -1,
			trio.Child: -1,
		},
	}
}

// CheckAndAdd validates (v, c) against the admission filters in spec.md
// §4.5 and, if admitted, appends it to member's queue. It always advances
// most_recent_start[member] to v.Start, even when the pair is rejected:
// the stream has still moved past that position even though this record
// did not qualify (SPEC_FULL.md §3). A non-nil error indicates member is
// not one of Dad/Mom/Child — an invariant violation (spec.md §7), not a
// data condition.
func (b *Buffer) CheckAndAdd(member trio.Member, v *variant.Variant, c variant.Call) (admitted bool, err error) {
	if _, ok := b.queues[member]; !ok {
		return false, fmt.Errorf("buffer: unknown trio member %v", member)
	}

	if v.Start > b.mostRecentStart[member] {
		b.mostRecentStart[member] = v.Start
	}

	if !c.IsEligible(v) {
		return false, nil
	}
	if member == trio.Child && !v.IsSNV() {
		return false, nil
	}

	b.queues[member] = append(b.queues[member], entry{v, c})
	return true, nil
}

// CanProcess reports whether the child queue has a front entry that no
// earlier-starting parent record can still arrive to precede: both
// parents' most-recent-seen start must be at or past the child front's
// start (spec.md §4.5).
func (b *Buffer) CanProcess() bool {
	childQueue := b.queues[trio.Child]
	if len(childQueue) == 0 {
		return false
	}
	childStart := childQueue[0].v.Start
	return b.mostRecentStart[trio.Mom] >= childStart && b.mostRecentStart[trio.Dad] >= childStart
}

// RetrieveNextCall evicts parent entries that end before the child front's
// start, then searches each parent queue for an entry whose half-open span
// contains the child SNV position. ok is false if either parent has no
// covering entry — the caller must discard this position (spec.md §4.5)
// and still Pop(Child) to advance.
func (b *Buffer) RetrieveNextCall() (call PositionCall, ok bool, err error) {
	childQueue := b.queues[trio.Child]
	if len(childQueue) == 0 {
		return PositionCall{}, false, fmt.Errorf("buffer: RetrieveNextCall called with an empty child queue")
	}
	childEntry := childQueue[0]
	pos := childEntry.v.Start

	b.evictParents(trio.Dad, pos)
	b.evictParents(trio.Mom, pos)

	dadGT, found, err := b.resolveParentGenotype(trio.Dad, pos, childEntry.v.RefBases[0])
	if err != nil || !found {
		return PositionCall{}, false, err
	}
	momGT, found, err := b.resolveParentGenotype(trio.Mom, pos, childEntry.v.RefBases[0])
	if err != nil || !found {
		return PositionCall{}, false, err
	}

	childGT, err := variant.ResolveGenotype(childEntry.v, childEntry.c)
	if err != nil {
		return PositionCall{}, false, err
	}

	return PositionCall{
		Reference: b.reference,
		Position:  pos,
		Dad:       dadGT,
		Mom:       momGT,
		Child:     childGT,
	}, true, nil
}

// evictParents drops front entries of member's queue whose end is before
// pos: such entries can no longer cover any future child position, since
// child starts are non-decreasing.
func (b *Buffer) evictParents(member trio.Member, pos int64) {
	q := b.queues[member]
	i := 0
	for i < len(q) && q[i].v.End < pos {
		i++
	}
	b.queues[member] = q[i:]
}

// resolveParentGenotype finds the entry in member's queue whose [Start,
// End) contains pos and decodes the implied genotype: directly from the
// call if the entry is itself an SNV, or as homozygous reference (using
// childRefBase) if it is a gVCF reference block.
func (b *Buffer) resolveParentGenotype(member trio.Member, pos int64, childRefBase byte) (genotype.Genotype, bool, error) {
	for _, e := range b.queues[member] {
		if e.v.Start <= pos && pos < e.v.End {
			if e.v.IsSNV() {
				g, err := variant.ResolveGenotype(e.v, e.c)
				return g, err == nil, err
			}
			g, err := variant.ReferenceGenotype(childRefBase)
			return g, err == nil, err
		}
	}
	return 0, false, nil
}

// Pop drops the front entry of member's queue. The variant caller stage
// calls Pop(Child) after RetrieveNextCall to advance past the position just
// resolved (or discarded).
func (b *Buffer) Pop(member trio.Member) {
	q := b.queues[member]
	if len(q) == 0 {
		return
	}
	b.queues[member] = q[1:]
}

// IsEmpty reports whether member's queue currently holds no entries, used
// by the caller to drive the terminal flush on stream end.
func (b *Buffer) IsEmpty(member trio.Member) bool {
	return len(b.queues[member]) == 0
}

// QueueState reports the spec.md §4.5 state of member's queue relative to
// the most recent child start seen so far.
func (b *Buffer) QueueState(member trio.Member) State {
	q := b.queues[member]
	if len(q) == 0 {
		return Empty
	}
	childStart := b.mostRecentStart[trio.Child]
	if q[0].v.Start <= childStart {
		return Matured
	}
	return Buffering
}
