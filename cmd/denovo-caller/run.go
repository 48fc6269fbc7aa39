package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/denovo-caller/internal/genomics"
	"github.com/inodb/denovo-caller/internal/infer"
	"github.com/inodb/denovo-caller/internal/logging"
	"github.com/inodb/denovo-caller/internal/orchestrator"
	"github.com/inodb/denovo-caller/internal/readcaller"
	"github.com/inodb/denovo-caller/internal/trio"
	"github.com/inodb/denovo-caller/internal/variantcaller"
)

// runFlags holds every --flag from spec.md §6's table plus the ADDED
// offline/logging bindings from SPEC_FULL.md §6.
type runFlags struct {
	caller           string
	inferenceMethod  string
	clientSecrets    string
	datasetID        string
	dadCallsetName   string
	momCallsetName   string
	childCallsetName string
	chromosomes      []string
	startPosition    int64
	endPosition      int64
	denovoMutRate    float64
	seqErrRate       float64
	lrtThreshold     float64
	numThreads       int
	maxVariantResult int
	maxAPIRetries    int
	inputCallsFile   string
	outputFile       string
	logLevel         string

	apiBaseURL        string
	offlineFixtureDir string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the de novo trio caller",
		Long:  "Runs the VARIANT, READ, or FULL caller pipeline against a trio's calls and reads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd.Context(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.caller, "caller", "", "Caller mode: VARIANT, READ, or FULL (required)")
	flags.StringVar(&f.inferenceMethod, "inference_method", "", "Decision rule: MAP, BAYES, or LRT (required for READ/FULL)")
	flags.StringVar(&f.clientSecrets, "client_secrets_filename", "", "OAuth client-secrets file for the remote genomics service")
	flags.StringVar(&f.datasetID, "dataset_id", "", "Remote dataset ID")
	flags.StringVar(&f.dadCallsetName, "dad_callset_name", "", "Father's callset name")
	flags.StringVar(&f.momCallsetName, "mom_callset_name", "", "Mother's callset name")
	flags.StringVar(&f.childCallsetName, "child_callset_name", "", "Child's callset name")
	flags.StringArrayVar(&f.chromosomes, "chromosome", nil, "Chromosome to scan (repeatable; default = all known)")
	flags.Int64Var(&f.startPosition, "start_position", 0, "1-based start position (default = contig start)")
	flags.Int64Var(&f.endPosition, "end_position", 0, "1-based inclusive end position (default = contig end)")
	flags.Float64Var(&f.denovoMutRate, "denovo_mut_rate", 1e-8, "De novo mutation rate (mu)")
	flags.Float64Var(&f.seqErrRate, "seq_err_rate", 1e-2, "Sequencing error rate (epsilon)")
	flags.Float64Var(&f.lrtThreshold, "lrt_threshold", 1.0, "Log-domain likelihood-ratio threshold")
	flags.IntVar(&f.numThreads, "num_threads", 1, "Worker goroutines per stage")
	flags.IntVar(&f.maxVariantResult, "max_variant_results", 10000, "Page size for variant search")
	flags.IntVar(&f.maxAPIRetries, "max_api_retries", 5, "Retries for transient read-fetch failures from the remote service")
	flags.StringVar(&f.inputCallsFile, "input_calls_file", "", "Candidates file (required for READ)")
	flags.StringVar(&f.outputFile, "output_file", "", "Output file (candidates for VARIANT, final calls for READ/FULL)")
	flags.StringVar(&f.logLevel, "log_level", "INFO", "Log level: ERROR, WARN, INFO, or DEBUG")
	flags.StringVar(&f.apiBaseURL, "api_base_url", "", "Base URL of the remote genomics service")
	flags.StringVar(&f.offlineFixtureDir, "offline_fixtures_dir", "", "Directory of offline variants.vcf/reads.tsv fixtures, bypassing the remote service")

	for _, name := range []string{
		"caller", "inference_method", "dataset_id", "dad_callset_name", "mom_callset_name",
		"child_callset_name", "denovo_mut_rate", "seq_err_rate", "lrt_threshold", "num_threads",
		"max_variant_results", "max_api_retries", "log_level",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	return cmd
}

func runMain(ctx context.Context, f runFlags) error {
	// Bound keys (see newRunCmd's BindPFlag loop) resolve through viper so
	// an unset flag falls back to ~/.denovo-caller.yaml, matching the
	// teacher's config.go precedence.
	f.caller = viper.GetString("caller")
	f.inferenceMethod = viper.GetString("inference_method")
	f.datasetID = viper.GetString("dataset_id")
	f.dadCallsetName = viper.GetString("dad_callset_name")
	f.momCallsetName = viper.GetString("mom_callset_name")
	f.childCallsetName = viper.GetString("child_callset_name")
	f.denovoMutRate = viper.GetFloat64("denovo_mut_rate")
	f.seqErrRate = viper.GetFloat64("seq_err_rate")
	f.lrtThreshold = viper.GetFloat64("lrt_threshold")
	f.numThreads = viper.GetInt("num_threads")
	f.maxVariantResult = viper.GetInt("max_variant_results")
	f.maxAPIRetries = viper.GetInt("max_api_retries")
	f.logLevel = viper.GetString("log_level")

	mode, err := orchestrator.ParseMode(f.caller)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(level)
	if err != nil {
		return fmt.Errorf("denovo-caller: build logger: %w", err)
	}
	defer logger.Sync()

	client, err := buildClient(ctx, f)
	if err != nil {
		return err
	}

	net, err := trio.NewNetwork(f.denovoMutRate, f.seqErrRate)
	if err != nil {
		return fmt.Errorf("denovo-caller: build trio network: %w", err)
	}
	engine := infer.NewEngine(net, f.lrtThreshold)

	ranges, err := resolveRanges(ctx, client, f)
	if err != nil {
		return err
	}

	dadID, momID, childID, err := resolveCallsetIDs(ctx, client, f)
	if err != nil {
		return err
	}

	var method infer.Method
	if mode != orchestrator.VariantOnly {
		method, err = infer.ParseMethod(f.inferenceMethod)
		if err != nil {
			return err
		}
	}

	cfg := orchestrator.Config{
		Mode:   mode,
		Ranges: ranges,
		VariantCallerCfg: variantcaller.Config{
			DadCallsetID: dadID, MomCallsetID: momID, ChildCallsetID: childID,
			PageSize: f.maxVariantResult, NumWorkers: f.numThreads,
		},
		ReadCallerCfg: readcaller.Config{
			DadReadGroupSetID: dadID, MomReadGroupSetID: momID, ChildReadGroupSetID: childID,
			Method: method, NumWorkers: f.numThreads, MaxAPIRetries: f.maxAPIRetries,
		},
		CandidatesPath:  f.inputCallsFile,
		OutputPath:      f.outputFile,
		NumRangeWorkers: f.numThreads,
	}

	orch := orchestrator.New(client, engine, logger, cfg)
	return orch.Run(ctx)
}

func buildClient(ctx context.Context, f runFlags) (genomics.Client, error) {
	if f.offlineFixtureDir != "" {
		vcfPath := filepath.Join(f.offlineFixtureDir, "variants.vcf")
		readsPath := filepath.Join(f.offlineFixtureDir, "reads.tsv")
		if _, err := os.Stat(readsPath); os.IsNotExist(err) {
			readsPath = ""
		}
		return genomics.NewFileClient(vcfPath, readsPath)
	}

	if f.clientSecrets == "" {
		return nil, fmt.Errorf("denovo-caller: --client_secrets_filename is required unless --offline_fixtures_dir is set")
	}
	secrets, err := genomics.LoadClientSecrets(f.clientSecrets)
	if err != nil {
		return nil, err
	}
	return genomics.NewRemoteClient(f.apiBaseURL, secrets), nil
}

func resolveRanges(ctx context.Context, client genomics.Client, f runFlags) ([]variantcaller.ChromosomeRange, error) {
	chromosomes := f.chromosomes
	if len(chromosomes) == 0 {
		if fc, ok := client.(*genomics.FileClient); ok {
			chromosomes = fc.References()
		}
	}
	if len(chromosomes) == 0 {
		return nil, fmt.Errorf("denovo-caller: --chromosome is required (no default contig list available for this client)")
	}

	start, end := f.startPosition, f.endPosition
	if end == 0 {
		end = int64(^uint64(0) >> 1) // no known upper bound without contig metadata
	} else {
		end++ // --end_position is inclusive; ChromosomeRange.End is exclusive
	}

	ranges := make([]variantcaller.ChromosomeRange, len(chromosomes))
	for i, c := range chromosomes {
		ranges[i] = variantcaller.ChromosomeRange{Reference: c, Start: start, End: end}
	}
	return ranges, nil
}

func resolveCallsetIDs(ctx context.Context, client genomics.Client, f runFlags) (dad, mom, child string, err error) {
	dad, err = client.ResolveCallsetID(ctx, f.datasetID, f.dadCallsetName)
	if err != nil {
		return "", "", "", fmt.Errorf("denovo-caller: resolve dad callset: %w", err)
	}
	mom, err = client.ResolveCallsetID(ctx, f.datasetID, f.momCallsetName)
	if err != nil {
		return "", "", "", fmt.Errorf("denovo-caller: resolve mom callset: %w", err)
	}
	child, err = client.ResolveCallsetID(ctx, f.datasetID, f.childCallsetName)
	if err != nil {
		return "", "", "", fmt.Errorf("denovo-caller: resolve child callset: %w", err)
	}
	return dad, mom, child, nil
}
