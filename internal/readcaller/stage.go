// Package readcaller implements C7, the read-caller stage: for each
// candidate position from the variant caller, it pulls aligned reads for
// all three trio members, builds per-member pileup.Summary counts, and
// runs them through the trio inference engine, writing every confirmed de
// novo call to the final calls file. Fan-out over candidates uses
// workpool (generalized from the teacher's annotate.ParallelAnnotate),
// and every external read fetch goes through retry.Do per spec.md §6's
// --max_api_retries.
package readcaller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/denovo-caller/internal/genomics"
	"github.com/inodb/denovo-caller/internal/infer"
	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/recordio"
	"github.com/inodb/denovo-caller/internal/retry"
	"github.com/inodb/denovo-caller/internal/trio"
	"github.com/inodb/denovo-caller/internal/workpool"
	"github.com/inodb/denovo-caller/internal/writer"
)

// Config configures one Stage run.
type Config struct {
	DadReadGroupSetID, MomReadGroupSetID, ChildReadGroupSetID string
	Method                                                    infer.Method
	NumWorkers                                                int
	MaxAPIRetries                                             int
	RetryBaseDelay                                            time.Duration
}

// Stage is the read-caller pipeline stage.
type Stage struct {
	client genomics.Client
	engine *infer.Engine
	out    *writer.LockedWriter
	logger *zap.SugaredLogger
	cfg    Config
}

// New builds a Stage scoring candidates with engine and writing confirmed
// calls to out.
func New(client genomics.Client, engine *infer.Engine, out *writer.LockedWriter, logger *zap.SugaredLogger, cfg Config) *Stage {
	if cfg.MaxAPIRetries < 1 {
		cfg.MaxAPIRetries = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	return &Stage{client: client, engine: engine, out: out, logger: logger, cfg: cfg}
}

// Run reads every candidate from candidatesPath, scores it, and writes
// confirmed de novo calls to out.
func (s *Stage) Run(ctx context.Context, candidatesPath string) error {
	r, err := recordio.OpenCandidateReader(candidatesPath)
	if err != nil {
		return err
	}
	defer r.Close()

	items := make(chan workpool.Item[recordio.Candidate])
	go func() {
		defer close(items)
		seq := 0
		for {
			c, err := r.Next()
			if err != nil {
				var parseErr *recordio.ParseError
				if errors.As(err, &parseErr) {
					s.logger.Warnw("skipping malformed candidate record", "error", err)
					continue
				}
				s.logger.Errorw("failed to read candidate record", "error", err)
				return
			}
			if c == nil {
				return
			}
			items <- workpool.Item[recordio.Candidate]{Seq: seq, Value: *c}
			seq++
		}
	}()

	results := workpool.Run(items, s.cfg.NumWorkers, func(c recordio.Candidate) (*recordio.Call, error) {
		return s.score(ctx, c)
	})

	return workpool.OrderedCollect(results, func(res workpool.Result[recordio.Candidate, *recordio.Call]) error {
		if res.Err != nil {
			s.logger.Warnw("failed to score candidate", "reference", res.Value.Reference, "position", res.Value.Position, "error", res.Err)
			return nil
		}
		if res.Out == nil {
			return nil
		}
		return s.out.WriteLine(recordio.FormatCall(*res.Out))
	})
}

// score fetches reads for all three trio members at c's position, runs
// inference, and returns a *recordio.Call if the position is confirmed de
// novo, or nil otherwise.
func (s *Stage) score(ctx context.Context, c recordio.Candidate) (*recordio.Call, error) {
	readGroupSetIDs := map[trio.Member]string{
		trio.Dad:   s.cfg.DadReadGroupSetID,
		trio.Mom:   s.cfg.MomReadGroupSetID,
		trio.Child: s.cfg.ChildReadGroupSetID,
	}

	reads := make(map[trio.Member]pileup.Summary, 3)
	for _, m := range [...]trio.Member{trio.Dad, trio.Mom, trio.Child} {
		alignments, err := s.fetchReads(ctx, readGroupSetIDs[m], c.Reference, c.Position)
		if err != nil {
			return nil, fmt.Errorf("readcaller: %s reads at %s:%d: %w", m, c.Reference, c.Position, err)
		}
		reads[m] = pileup.BuildSummary(alignments, c.Position)
	}

	result, err := s.engine.Infer(reads, s.cfg.Method)
	if err != nil {
		return nil, fmt.Errorf("readcaller: infer at %s:%d: %w", c.Reference, c.Position, err)
	}
	if !result.IsDenovo {
		return nil, nil
	}

	return &recordio.Call{
		Reference: c.Reference,
		Position:  c.Position,
		Reads:     reads,
		Result:    result,
	}, nil
}

func (s *Stage) fetchReads(ctx context.Context, readGroupSetID, reference string, position int64) ([]pileup.Alignment, error) {
	var alignments []pileup.Alignment
	err := retry.Do(ctx, s.cfg.MaxAPIRetries, s.cfg.RetryBaseDelay, func(ctx context.Context) error {
		var err error
		alignments, err = s.client.ListReads(ctx, readGroupSetID, reference, position, position+1)
		return err
	})
	return alignments, err
}
