package recordio

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCandidatesFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCandidateReader_ReadsAllRecords(t *testing.T) {
	path := writeCandidatesFile(t, "chr1,100\nchr1,250\nchr2,10\n")
	r, err := OpenCandidateReader(path)
	require.NoError(t, err)
	defer r.Close()

	var got []Candidate
	for {
		c, err := r.Next()
		require.NoError(t, err)
		if c == nil {
			break
		}
		got = append(got, *c)
	}

	require.Len(t, got, 3)
	assert.Equal(t, Candidate{Reference: "chr1", Position: 100}, got[0])
	assert.Equal(t, Candidate{Reference: "chr2", Position: 10}, got[2])
}

func TestCandidateReader_SkipsBlankLines(t *testing.T) {
	path := writeCandidatesFile(t, "chr1,100\n\n\nchr1,200\n")
	r, err := OpenCandidateReader(path)
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for {
		c, err := r.Next()
		require.NoError(t, err)
		if c == nil {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestCandidateReader_MalformedLineIsParseError(t *testing.T) {
	path := writeCandidatesFile(t, "chr1,100\nchr1,notanumber\n")
	r, err := OpenCandidateReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
}

func TestCandidateReader_EmptyFile(t *testing.T) {
	path := writeCandidatesFile(t, "")
	r, err := OpenCandidateReader(path)
	require.NoError(t, err)
	defer r.Close()

	c, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCandidateReader_GzipTransparent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candidates.csv.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("chr1,100\nchr1,200\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	r, err := OpenCandidateReader(path)
	require.NoError(t, err)
	defer r.Close()

	c, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(100), c.Position)
}

func TestFormatCandidate(t *testing.T) {
	assert.Equal(t, "chr1,150", FormatCandidate("chr1", 150))
}
