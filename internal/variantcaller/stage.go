// Package variantcaller implements C6, the variant-caller stage: it
// streams each trio member's variant calls through a buffer.Buffer per
// contig sub-range, applies the Mendelian-inheritance filter
// (genotype.IsDenovo) to every position the buffer can resolve, and
// writes every Mendelian-inconsistent position to the candidates file for
// the read caller to confirm. Sub-range fan-out uses errgroup, mirroring
// the teacher's use of golang.org/x/sync in its other worker-pool paths.
package variantcaller

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/denovo-caller/internal/buffer"
	"github.com/inodb/denovo-caller/internal/genomics"
	"github.com/inodb/denovo-caller/internal/genotype"
	"github.com/inodb/denovo-caller/internal/recordio"
	"github.com/inodb/denovo-caller/internal/trio"
	"github.com/inodb/denovo-caller/internal/variant"
	"github.com/inodb/denovo-caller/internal/writer"
)

// ChromosomeRange names one contig sub-range this stage will scan.
type ChromosomeRange struct {
	Reference string
	Start     int64
	End       int64
}

// Config configures one Stage run.
type Config struct {
	DadCallsetID, MomCallsetID, ChildCallsetID string
	PageSize                                   int
	NumWorkers                                 int
}

// Stage is the variant-caller pipeline stage.
type Stage struct {
	client genomics.Client
	out    *writer.LockedWriter
	logger *zap.SugaredLogger
	cfg    Config
}

// New builds a Stage writing candidate records to out.
func New(client genomics.Client, out *writer.LockedWriter, logger *zap.SugaredLogger, cfg Config) *Stage {
	return &Stage{client: client, out: out, logger: logger, cfg: cfg}
}

// Run scans every range concurrently (bounded by cfg.NumWorkers) and
// writes every Mendelian-inconsistent candidate position it finds.
func (s *Stage) Run(ctx context.Context, ranges []ChromosomeRange) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.cfg.NumWorkers > 0 {
		g.SetLimit(s.cfg.NumWorkers)
	}

	for _, r := range ranges {
		r := r
		g.Go(func() error {
			return s.processRange(ctx, r)
		})
	}
	return g.Wait()
}

// processRange drives one contig sub-range's VariantsBuffer to completion:
// pull from all three member streams, draining every position the buffer
// can resolve as soon as it becomes resolvable.
func (s *Stage) processRange(ctx context.Context, r ChromosomeRange) error {
	callsetIDs := map[trio.Member]string{
		trio.Dad:   s.cfg.DadCallsetID,
		trio.Mom:   s.cfg.MomCallsetID,
		trio.Child: s.cfg.ChildCallsetID,
	}

	streams := map[trio.Member]*memberStream{}
	for _, m := range [...]trio.Member{trio.Dad, trio.Mom, trio.Child} {
		streams[m] = newMemberStream(s.client, r.Reference, r.Start, r.End, callsetIDs[m], s.cfg.PageSize)
	}

	buf := buffer.New(r.Reference)
	exhausted := map[trio.Member]bool{}

	for len(exhausted) < 3 {
		for _, m := range [...]trio.Member{trio.Dad, trio.Mom, trio.Child} {
			if exhausted[m] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			v, ok, err := streams[m].next(ctx)
			if err != nil {
				return fmt.Errorf("variantcaller: %s: %v stream: %w", r.Reference, m, err)
			}
			if !ok {
				exhausted[m] = true
				continue
			}

			call, err := extractCall(v, callsetIDs[m])
			if err != nil {
				s.logger.Warnw("skipping record with no call for callset",
					"reference", r.Reference, "start", v.Start, "member", m, "error", err)
				continue
			}

			if _, err := buf.CheckAndAdd(m, v, call); err != nil {
				return fmt.Errorf("variantcaller: %w", err)
			}

			if err := s.drainResolvable(buf, r.Reference); err != nil {
				return err
			}
		}
	}

	return s.flushRemaining(buf, r.Reference)
}

// drainResolvable pops and evaluates every child position the buffer can
// currently resolve, writing the Mendelian-inconsistent ones as
// candidates.
func (s *Stage) drainResolvable(buf *buffer.Buffer, reference string) error {
	for buf.CanProcess() {
		call, ok, err := buf.RetrieveNextCall()
		if err != nil {
			return fmt.Errorf("variantcaller: %w", err)
		}
		if ok && genotype.IsDenovo(call.Dad, call.Mom, call.Child) {
			if err := s.out.WriteLine(recordio.FormatCandidate(reference, call.Position)); err != nil {
				return fmt.Errorf("variantcaller: write candidate: %w", err)
			}
		}
		buf.Pop(trio.Child)
	}
	return nil
}

// flushRemaining resolves every child position left once every stream is
// exhausted: no further parent record can arrive, so each position is
// matched against the parent entries already buffered and discarded only
// if no entry covers it (spec.md §4.5 terminal flush).
func (s *Stage) flushRemaining(buf *buffer.Buffer, reference string) error {
	for !buf.IsEmpty(trio.Child) {
		call, ok, err := buf.RetrieveNextCall()
		if err != nil {
			return fmt.Errorf("variantcaller: %w", err)
		}
		if !ok {
			s.logger.Debugw("discarding child position with no parent coverage at stream end", "reference", reference)
		} else if genotype.IsDenovo(call.Dad, call.Mom, call.Child) {
			if err := s.out.WriteLine(recordio.FormatCandidate(reference, call.Position)); err != nil {
				return fmt.Errorf("variantcaller: write candidate: %w", err)
			}
		}
		buf.Pop(trio.Child)
	}
	return nil
}

// extractCall finds callsetID's Call on v; v is expected to carry exactly
// one, since the backing ListVariants call was itself scoped to a single
// callset.
func extractCall(v *variant.Variant, callsetID string) (variant.Call, error) {
	for _, c := range v.Calls {
		if c.CallsetID == callsetID {
			return c, nil
		}
	}
	return variant.Call{}, fmt.Errorf("variantcaller: no call for callset %q at %s:%d", callsetID, v.Reference, v.Start)
}

// memberStream pages through one trio member's variant stream in order.
type memberStream struct {
	client     genomics.Client
	reference  string
	start, end int64
	callsetID  string
	pageSize   int

	page      []*variant.Variant
	pageIdx   int
	pageToken string
	started   bool
	exhausted bool
}

func newMemberStream(client genomics.Client, reference string, start, end int64, callsetID string, pageSize int) *memberStream {
	return &memberStream{client: client, reference: reference, start: start, end: end, callsetID: callsetID, pageSize: pageSize}
}

// next returns the next variant in this member's stream, or (nil, false,
// nil) once exhausted.
func (m *memberStream) next(ctx context.Context) (*variant.Variant, bool, error) {
	for m.pageIdx >= len(m.page) {
		if m.started && m.pageToken == "" {
			m.exhausted = true
		}
		if m.exhausted {
			return nil, false, nil
		}

		page, err := m.client.ListVariants(ctx, m.reference, m.start, m.end, []string{m.callsetID}, m.pageSize, m.pageToken)
		if err != nil {
			return nil, false, err
		}
		m.started = true
		m.page = page.Variants
		m.pageIdx = 0
		m.pageToken = page.NextPageToken

		if len(m.page) == 0 && m.pageToken == "" {
			m.exhausted = true
			return nil, false, nil
		}
	}

	v := m.page[m.pageIdx]
	m.pageIdx++
	return v, true, nil
}
