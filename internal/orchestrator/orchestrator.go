// Package orchestrator implements C8: the top-level driver that runs the
// variant-caller and read-caller stages in one of three modes
// (spec.md §6). In FULL mode each chromosome range is carried end to end
// through its own temporary candidates file by an independent goroutine,
// fanned out with sourcegraph/conc's pool (present in the teacher's
// go.mod as an indirect dependency of cache.RESTLoader's transitive
// closure, but never itself imported there) rather than a raw
// sync.WaitGroup.
package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/inodb/denovo-caller/internal/genomics"
	"github.com/inodb/denovo-caller/internal/infer"
	"github.com/inodb/denovo-caller/internal/readcaller"
	"github.com/inodb/denovo-caller/internal/variantcaller"
	"github.com/inodb/denovo-caller/internal/writer"
)

// Mode selects which stage(s) the orchestrator runs.
type Mode string

const (
	VariantOnly Mode = "VARIANT"
	ReadOnly    Mode = "READ"
	Full        Mode = "FULL"
)

// ParseMode validates a --caller flag value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case VariantOnly, ReadOnly, Full:
		return m, nil
	default:
		return "", fmt.Errorf("orchestrator: unknown caller mode %q (want VARIANT, READ, or FULL)", s)
	}
}

// Config configures one orchestrator run.
type Config struct {
	Mode             Mode
	Ranges           []variantcaller.ChromosomeRange
	VariantCallerCfg variantcaller.Config
	ReadCallerCfg    readcaller.Config
	CandidatesPath   string // input for READ mode, ignored otherwise
	OutputPath       string // candidates file (VARIANT) or calls file (READ, FULL)
	NumRangeWorkers  int    // FULL mode only: concurrent chromosome pipelines
}

// Orchestrator drives the pipeline stages against one genomics.Client.
type Orchestrator struct {
	client genomics.Client
	engine *infer.Engine
	logger *zap.SugaredLogger
	cfg    Config
}

// New builds an Orchestrator.
func New(client genomics.Client, engine *infer.Engine, logger *zap.SugaredLogger, cfg Config) *Orchestrator {
	return &Orchestrator{client: client, engine: engine, logger: logger, cfg: cfg}
}

// Run executes the configured mode.
func (o *Orchestrator) Run(ctx context.Context) error {
	switch o.cfg.Mode {
	case VariantOnly:
		return o.runVariantOnly(ctx, o.cfg.OutputPath)
	case ReadOnly:
		return o.runReadOnly(ctx, o.cfg.CandidatesPath, o.cfg.OutputPath)
	case Full:
		return o.runFull(ctx)
	default:
		return fmt.Errorf("orchestrator: unknown caller mode %q", o.cfg.Mode)
	}
}

func (o *Orchestrator) runVariantOnly(ctx context.Context, outputPath string) error {
	out, closeOut, err := writer.CreateOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	stage := variantcaller.New(o.client, out, o.logger, o.cfg.VariantCallerCfg)
	if err := stage.Run(ctx, o.cfg.Ranges); err != nil {
		return err
	}
	return out.Flush()
}

func (o *Orchestrator) runReadOnly(ctx context.Context, candidatesPath, outputPath string) error {
	out, closeOut, err := writer.CreateOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	stage := readcaller.New(o.client, o.engine, out, o.logger, o.cfg.ReadCallerCfg)
	if err := stage.Run(ctx, candidatesPath); err != nil {
		return err
	}
	return out.Flush()
}

// runFull carries each chromosome range end to end through its own
// temporary candidates file, concurrently across ranges, writing every
// confirmed call into the shared output file.
func (o *Orchestrator) runFull(ctx context.Context) error {
	out, closeOut, err := writer.CreateOutput(o.cfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	p := pool.New().WithContext(ctx).WithCancelOnError()
	if o.cfg.NumRangeWorkers > 0 {
		p = p.WithMaxGoroutines(o.cfg.NumRangeWorkers)
	}

	for _, r := range o.cfg.Ranges {
		r := r
		p.Go(func(ctx context.Context) error {
			return o.runFullRange(ctx, r, out)
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}
	return out.Flush()
}

func (o *Orchestrator) runFullRange(ctx context.Context, r variantcaller.ChromosomeRange, out *writer.LockedWriter) error {
	tmp, err := os.CreateTemp("", fmt.Sprintf("denovo-candidates-%s-*.csv", r.Reference))
	if err != nil {
		return fmt.Errorf("orchestrator: create temp candidates file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	candidatesOut := writer.New(tmp)
	vStage := variantcaller.New(o.client, candidatesOut, o.logger, o.cfg.VariantCallerCfg)
	if err := vStage.Run(ctx, []variantcaller.ChromosomeRange{r}); err != nil {
		tmp.Close()
		return err
	}
	if err := candidatesOut.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("orchestrator: close temp candidates file: %w", err)
	}

	rStage := readcaller.New(o.client, o.engine, out, o.logger, o.cfg.ReadCallerCfg)
	return rStage.Run(ctx, tmpPath)
}
