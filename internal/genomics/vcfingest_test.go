package genomics

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.2
##contig=<ID=chr1>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	DAD	MOM	CHILD
chr1	1	.	A	.	.	PASS	END=100	GT	0/0	0/0	0/0
chr1	150	.	A	G,T	50	PASS	.	GT	0/0	0/1	1/1
chr1	200	.	AT	A	30	LowQual	.	GT	0/1	0/0	0/1
`

func writeTempVCF(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trio.vcf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestVCFIngester_ParsesSamplesAndHeader(t *testing.T) {
	path := writeTempVCF(t, testVCF)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	assert.Equal(t, []string{"DAD", "MOM", "CHILD"}, ing.sampleNames)
}

func TestVCFIngester_ReferenceBlockUsesEndInfo(t *testing.T) {
	path := writeTempVCF(t, testVCF)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	v, err := ing.next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(1), v.Start)
	assert.Equal(t, int64(101), v.End)
	assert.True(t, v.IsReferenceBlock())
	assert.Len(t, v.Calls, 3)
	for _, c := range v.Calls {
		assert.Equal(t, [2]int{0, 0}, c.Indices)
		assert.Equal(t, "PASS", c.Info["FILTER"])
	}
}

func TestVCFIngester_MultiAltSNV(t *testing.T) {
	path := writeTempVCF(t, testVCF)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	_, err = ing.next() // skip reference block
	require.NoError(t, err)

	v, err := ing.next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(150), v.Start)
	assert.Equal(t, []string{"G", "T"}, v.AltBases)

	childCall := v.Calls[2]
	assert.Equal(t, "CHILD", childCall.CallsetID)
	assert.Equal(t, [2]int{1, 1}, childCall.Indices)
}

func TestVCFIngester_FilterPropagatedPerRow(t *testing.T) {
	path := writeTempVCF(t, testVCF)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	_, _ = ing.next()
	_, _ = ing.next()
	v, err := ing.next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.HasIndel())
	for _, c := range v.Calls {
		assert.Equal(t, "LowQual", c.Info["FILTER"])
	}
}

func TestVCFIngester_EOFReturnsNil(t *testing.T) {
	path := writeTempVCF(t, testVCF)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	for i := 0; i < 3; i++ {
		_, err := ing.next()
		require.NoError(t, err)
	}
	v, err := ing.next()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestVCFIngester_GzipTransparent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trio.vcf.gz")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	assert.Equal(t, []string{"DAD", "MOM", "CHILD"}, ing.sampleNames)
	v, err := ing.next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(1), v.Start)
}

func TestVCFIngester_MissingGTColumnIsParseError(t *testing.T) {
	bad := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tDAD\nchr1\t10\t.\tA\tC\t.\tPASS\t.\tDP\t20\n"
	path := writeTempVCF(t, bad)
	ing, err := newVCFIngester(path)
	require.NoError(t, err)
	defer ing.close()

	_, err = ing.next()
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Line)
}

func TestVCFIngester_MissingChromHeaderIsParseError(t *testing.T) {
	bad := "##fileformat=VCFv4.2\nchr1\t10\t.\tA\tC\t.\tPASS\t.\n"
	path := writeTempVCF(t, bad)
	_, err := newVCFIngester(path)
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseGT(t *testing.T) {
	cases := []struct {
		in      string
		want    [2]int
		wantErr bool
	}{
		{"0/1", [2]int{0, 1}, false},
		{"1|1", [2]int{1, 1}, false},
		{"./.", [2]int{-1, -1}, false},
		{"0/.", [2]int{0, -1}, false},
		{"garbage", [2]int{}, true},
	}
	for _, tc := range cases {
		got, err := parseGT(tc.in)
		if tc.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseInfo(t *testing.T) {
	assert.Equal(t, map[string]string{}, parseInfo("."))
	assert.Equal(t, map[string]string{"END": "100", "DP": "30"}, parseInfo("END=100;DP=30"))
	assert.Equal(t, map[string]string{"FLAG": "true"}, parseInfo("FLAG"))
}
