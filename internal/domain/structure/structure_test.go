package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldbank/foldbank/pkg/errors"
)

const samplePDB = `ATOM      1  N   MET A   1      11.104   6.134  -6.504  1.00 84.00           N
ATOM      2  CA  MET A   1      11.639   6.071  -5.147  1.00 84.00           C
ATOM      3  C   MET A   1      10.679   5.306  -4.230  1.00 84.00           C
ATOM      4  O   MET A   1       9.462   5.342  -4.413  1.00 84.00           O
ATOM      5  N   LYS A   2      11.255   4.612  -3.252  1.00 88.50           N
ATOM      6  CA  LYS A   2      10.473   3.832  -2.289  1.00 88.50           C
HETATM    7  O   HOH A 101       1.000   2.000   3.000  1.00  0.00           O
TER
END
`

func TestParse(t *testing.T) {
	rec, err := Parse([]byte(samplePDB))
	require.NoError(t, err)
	require.Len(t, rec.Residues, 2)

	met := rec.Residues[0]
	assert.Equal(t, "MET", met.Name)
	assert.Equal(t, "A", met.Chain)
	assert.Equal(t, 1, met.Index)
	assert.Len(t, met.Atoms, 4)

	ca, ok := met.AlphaCarbon()
	require.True(t, ok)
	assert.InDelta(t, 11.639, ca.X, 1e-9)
	assert.InDelta(t, 6.071, ca.Y, 1e-9)
	assert.InDelta(t, -5.147, ca.Z, 1e-9)

	assert.InDelta(t, 84.0, met.BFactor, 1e-9)
	assert.InDelta(t, 88.5, rec.Residues[1].BFactor, 1e-9)
}

func TestParse_SkipsHETATM(t *testing.T) {
	rec, err := Parse([]byte(samplePDB))
	require.NoError(t, err)
	for _, res := range rec.Residues {
		assert.NotEqual(t, "HOH", res.Name)
	}
}

func TestParse_NoAtoms(t *testing.T) {
	_, err := Parse([]byte("HEADER    ONLY\nEND\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureParse))
}

func TestParse_TruncatedRecord(t *testing.T) {
	_, err := Parse([]byte("ATOM      1  CA  MET A   1      11.1\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureParse))
}

func TestSequence(t *testing.T) {
	rec, err := Parse([]byte(samplePDB))
	require.NoError(t, err)
	assert.Equal(t, "MK", rec.Sequence())
}

func TestAlphaCarbons_SkipsResiduesWithoutCA(t *testing.T) {
	rec := &StructureRecord{Residues: []Residue{
		{Chain: "A", Name: "MET", Index: 1, Atoms: map[string]Coord{AtomCA: {X: 1}}},
		{Chain: "A", Name: "GLY", Index: 2, Atoms: map[string]Coord{"N": {X: 2}}},
		{Chain: "A", Name: "ALA", Index: 3, Atoms: map[string]Coord{AtomCA: {X: 3}}},
	}}

	cas := rec.AlphaCarbons()
	require.Len(t, cas, 2)
	assert.Equal(t, 1.0, cas[0].X)
	assert.Equal(t, 3.0, cas[1].X)
}

func TestMeanBFactor(t *testing.T) {
	rec := &StructureRecord{Residues: []Residue{
		{BFactor: 80}, {BFactor: 90},
	}}
	assert.InDelta(t, 85.0, rec.MeanBFactor(), 1e-9)

	empty := &StructureRecord{}
	assert.Equal(t, 0.0, empty.MeanBFactor())
}

func TestWriteParse_RoundTrip(t *testing.T) {
	orig := &StructureRecord{Residues: []Residue{
		{Chain: "A", Name: "MET", Index: 1, BFactor: 80.25, Atoms: map[string]Coord{
			"N": {X: 0.1, Y: 0.2, Z: 0.3}, AtomCA: {X: 1.5, Y: -2.25, Z: 3.125},
		}},
		{Chain: "A", Name: "LYS", Index: 2, BFactor: 91.5, Atoms: map[string]Coord{
			AtomCA: {X: 5.3, Y: 0, Z: -1.75},
		}},
	}}

	parsed, err := Parse(Write(orig))
	require.NoError(t, err)
	require.Len(t, parsed.Residues, 2)

	for i := range orig.Residues {
		want := orig.Residues[i]
		got := parsed.Residues[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Chain, got.Chain)
		assert.Equal(t, want.Index, got.Index)
		assert.InDelta(t, want.BFactor, got.BFactor, 1e-2)
		for name, c := range want.Atoms {
			gc, ok := got.Atoms[name]
			require.True(t, ok, "atom %s lost in round trip", name)
			assert.InDelta(t, c.X, gc.X, 1e-3)
			assert.InDelta(t, c.Y, gc.Y, 1e-3)
			assert.InDelta(t, c.Z, gc.Z, 1e-3)
		}
	}
}

func TestOneLetterThreeLetter(t *testing.T) {
	assert.Equal(t, byte('M'), OneLetter("MET"))
	assert.Equal(t, byte('M'), OneLetter("met"))
	assert.Equal(t, byte('X'), OneLetter("HOH"))
	assert.Equal(t, "MET", ThreeLetter('M'))
	assert.Equal(t, "UNK", ThreeLetter('?'))
}
