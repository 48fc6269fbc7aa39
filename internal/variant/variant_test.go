package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/denovo-caller/internal/genotype"
)

func TestIsSNV(t *testing.T) {
	v := &Variant{Start: 100, End: 101, RefBases: "A", AltBases: []string{"C"}}
	assert.True(t, v.IsSNV())

	indel := &Variant{Start: 100, End: 102, RefBases: "AT", AltBases: []string{"A"}}
	assert.False(t, indel.IsSNV())

	multiAlt := &Variant{Start: 100, End: 101, RefBases: "A", AltBases: []string{"C", "GG"}}
	assert.False(t, multiAlt.IsSNV())
}

func TestIsReferenceBlock(t *testing.T) {
	v := &Variant{Start: 100, End: 10100}
	assert.True(t, v.IsReferenceBlock())

	snv := &Variant{Start: 100, End: 101, RefBases: "A", AltBases: []string{"C"}}
	assert.False(t, snv.IsReferenceBlock())
}

func TestHasIndel(t *testing.T) {
	del := &Variant{RefBases: "AT", AltBases: []string{"A"}}
	assert.True(t, del.HasIndel())

	ins := &Variant{RefBases: "A", AltBases: []string{"AT"}}
	assert.True(t, ins.HasIndel())

	snv := &Variant{RefBases: "A", AltBases: []string{"C"}}
	assert.False(t, snv.HasIndel())
}

func TestCall_IsEligible(t *testing.T) {
	v := &Variant{RefBases: "A", AltBases: []string{"C"}}

	ok := Call{Indices: [2]int{0, 1}, Info: map[string]string{"FILTER": "PASS"}}
	assert.True(t, ok.IsEligible(v))

	missingIdx := Call{Indices: [2]int{-1, 1}, Info: map[string]string{"FILTER": "PASS"}}
	assert.False(t, missingIdx.IsEligible(v))

	notPass := Call{Indices: [2]int{0, 1}, Info: map[string]string{"FILTER": "LowQual"}}
	assert.False(t, notPass.IsEligible(v))

	indelVariant := &Variant{RefBases: "A", AltBases: []string{"AT"}}
	indelCall := Call{Indices: [2]int{0, 1}, Info: map[string]string{"FILTER": "PASS"}}
	assert.False(t, indelCall.IsEligible(indelVariant))
}

func TestResolveGenotype(t *testing.T) {
	v := &Variant{RefBases: "A", AltBases: []string{"C"}}
	c := Call{Indices: [2]int{0, 1}}

	g, err := ResolveGenotype(v, c)
	require.NoError(t, err)
	assert.Equal(t, genotype.AC, g)

	homRef := Call{Indices: [2]int{0, 0}}
	g, err = ResolveGenotype(v, homRef)
	require.NoError(t, err)
	assert.Equal(t, genotype.AA, g)
}

func TestReferenceGenotype(t *testing.T) {
	g, err := ReferenceGenotype('T')
	require.NoError(t, err)
	assert.Equal(t, genotype.TT, g)

	_, err = ReferenceGenotype('N')
	assert.Error(t, err)
}
