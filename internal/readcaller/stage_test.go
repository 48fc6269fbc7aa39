package readcaller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/denovo-caller/internal/genomics"
	"github.com/inodb/denovo-caller/internal/infer"
	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/trio"
	"github.com/inodb/denovo-caller/internal/writer"
)

// fakeReadsClient answers ListReads from a fixed per-readgroup alignment
// set; ListVariants and ResolveCallsetID are unused by this stage.
type fakeReadsClient struct {
	byGroup map[string][]pileup.Alignment
	calls   int
	failN   int // fail the first failN calls, then succeed
}

func (f *fakeReadsClient) ListVariants(context.Context, string, int64, int64, []string, int, string) (genomics.VariantPage, error) {
	panic("unused")
}

func (f *fakeReadsClient) ListReads(_ context.Context, readGroupSetID, _ string, start, end int64) ([]pileup.Alignment, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, errors.New("transient failure")
	}
	var matched []pileup.Alignment
	for _, a := range f.byGroup[readGroupSetID] {
		alignedEnd := a.Position + int64(len(a.AlignedBases))
		if a.Position < end && alignedEnd > start {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (f *fakeReadsClient) ResolveCallsetID(context.Context, string, string) (string, error) {
	return "", nil
}

func repeatAlignment(position int64, base byte, n int) []pileup.Alignment {
	out := make([]pileup.Alignment, n)
	for i := range out {
		out[i] = pileup.Alignment{Position: position, AlignedBases: string(base)}
	}
	return out
}

func mixedAlignment(position int64, bases string) []pileup.Alignment {
	out := make([]pileup.Alignment, len(bases))
	for i, b := range []byte(bases) {
		out[i] = pileup.Alignment{Position: position, AlignedBases: string(b)}
	}
	return out
}

func writeCandidatesFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func newTestEngine(t *testing.T) *infer.Engine {
	t.Helper()
	net, err := trio.NewNetwork(1e-8, 1e-2)
	require.NoError(t, err)
	return infer.NewEngine(net, 1.0)
}

func TestStage_WritesConfirmedDenovoCall(t *testing.T) {
	client := &fakeReadsClient{byGroup: map[string][]pileup.Alignment{
		"DAD_RG":   repeatAlignment(150, 'T', 28),
		"MOM_RG":   repeatAlignment(150, 'T', 36),
		"CHILD_RG": append(repeatAlignment(150, 'T', 33), mixedAlignment(150, strings.Repeat("C", 15))...),
	}}

	candidatesPath := writeCandidatesFile(t, "chr1,150")

	var buf bytes.Buffer
	out := writer.New(&buf)
	stage := New(client, newTestEngine(t), out, zap.NewNop().Sugar(), Config{
		DadReadGroupSetID: "DAD_RG", MomReadGroupSetID: "MOM_RG", ChildReadGroupSetID: "CHILD_RG",
		Method: infer.MAP, NumWorkers: 2,
	})

	require.NoError(t, stage.Run(context.Background(), candidatesPath))
	assert.Contains(t, buf.String(), "chr1,150,")
	assert.Contains(t, buf.String(), "isDenovo=true")
}

func TestStage_MendelianConsistentProducesNoOutput(t *testing.T) {
	client := &fakeReadsClient{byGroup: map[string][]pileup.Alignment{
		"DAD_RG":   repeatAlignment(150, 'A', 40),
		"MOM_RG":   repeatAlignment(150, 'A', 40),
		"CHILD_RG": repeatAlignment(150, 'A', 40),
	}}

	candidatesPath := writeCandidatesFile(t, "chr1,150")

	var buf bytes.Buffer
	out := writer.New(&buf)
	stage := New(client, newTestEngine(t), out, zap.NewNop().Sugar(), Config{
		DadReadGroupSetID: "DAD_RG", MomReadGroupSetID: "MOM_RG", ChildReadGroupSetID: "CHILD_RG",
		Method: infer.MAP, NumWorkers: 2,
	})

	require.NoError(t, stage.Run(context.Background(), candidatesPath))
	assert.Empty(t, buf.String())
}

func TestStage_MultipleCandidatesPreserveOrder(t *testing.T) {
	client := &fakeReadsClient{byGroup: map[string][]pileup.Alignment{
		"DAD_RG": append(append(
			repeatAlignment(100, 'A', 40),
			repeatAlignment(200, 'T', 28)...),
			repeatAlignment(300, 'A', 40)...),
		"MOM_RG": append(append(
			repeatAlignment(100, 'A', 40),
			repeatAlignment(200, 'T', 36)...),
			repeatAlignment(300, 'A', 40)...),
		"CHILD_RG": append(append(
			repeatAlignment(100, 'A', 40),
			append(repeatAlignment(200, 'T', 33), mixedAlignment(200, strings.Repeat("C", 15))...)...),
			repeatAlignment(300, 'A', 40)...),
	}}

	candidatesPath := writeCandidatesFile(t, "chr1,100", "chr1,200", "chr1,300")

	var buf bytes.Buffer
	out := writer.New(&buf)
	stage := New(client, newTestEngine(t), out, zap.NewNop().Sugar(), Config{
		DadReadGroupSetID: "DAD_RG", MomReadGroupSetID: "MOM_RG", ChildReadGroupSetID: "CHILD_RG",
		Method: infer.MAP, NumWorkers: 4,
	})

	require.NoError(t, stage.Run(context.Background(), candidatesPath))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "chr1,200,"))
}

func TestStage_RetriesTransientReadFailures(t *testing.T) {
	client := &fakeReadsClient{
		failN: 2,
		byGroup: map[string][]pileup.Alignment{
			"DAD_RG":   repeatAlignment(150, 'A', 40),
			"MOM_RG":   repeatAlignment(150, 'A', 40),
			"CHILD_RG": repeatAlignment(150, 'A', 40),
		},
	}

	candidatesPath := writeCandidatesFile(t, "chr1,150")

	var buf bytes.Buffer
	out := writer.New(&buf)
	stage := New(client, newTestEngine(t), out, zap.NewNop().Sugar(), Config{
		DadReadGroupSetID: "DAD_RG", MomReadGroupSetID: "MOM_RG", ChildReadGroupSetID: "CHILD_RG",
		Method: infer.MAP, NumWorkers: 1, MaxAPIRetries: 5, RetryBaseDelay: time.Millisecond,
	})

	require.NoError(t, stage.Run(context.Background(), candidatesPath))
}
