// Package structure holds the parsed representation of a predicted protein
// structure and its PDB serialization.  A StructureRecord is what the cache
// persists and what the geometry engine consumes.
package structure

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Coord is a 3D coordinate in angstroms.
type Coord = r3.Vec

// AtomCA is the alpha-carbon atom name, the representative position of a
// residue for all distance and curvature computations.
const AtomCA = "CA"

// threeToOne maps PDB three-letter residue names to one-letter codes.
var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLU": 'E', "GLN": 'Q', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

var oneToThree = map[byte]string{}

func init() {
	for k, v := range threeToOne {
		oneToThree[v] = k
	}
}

// OneLetter returns the one-letter code for a three-letter residue name, or
// 'X' when the name is not a standard amino acid.
func OneLetter(name string) byte {
	if c, ok := threeToOne[strings.ToUpper(name)]; ok {
		return c
	}
	return 'X'
}

// ThreeLetter returns the three-letter residue name for a one-letter code,
// or "UNK" when the code is not a standard amino acid.
func ThreeLetter(code byte) string {
	if n, ok := oneToThree[code]; ok {
		return n
	}
	return "UNK"
}

// Residue is one amino-acid unit of a parsed structure.
type Residue struct {
	// Chain is the PDB chain identifier, usually "A" for predicted
	// single-chain structures.
	Chain string

	// Name is the three-letter residue name.
	Name string

	// Index is the residue sequence number from the ATOM records (1-based
	// for predictor output).
	Index int

	// Atoms maps atom names to coordinates.
	Atoms map[string]Coord

	// BFactor is the mean B-factor over the residue's atoms.  ESMFold-class
	// predictors store per-residue pLDDT confidence here.
	BFactor float64
}

// AlphaCarbon returns the residue's Cα coordinate.  The second return is
// false when the residue has no Cα atom; such residues are excluded from all
// downstream geometry, never substituted with zero vectors.
func (r *Residue) AlphaCarbon() (Coord, bool) {
	c, ok := r.Atoms[AtomCA]
	return c, ok
}

// StructureRecord is the ordered residue list of one predicted structure.
// Residue order matches the input sequence order.
type StructureRecord struct {
	Residues []Residue
}

// AlphaCarbons returns the Cα coordinates of all residues that have one, in
// residue order.
func (s *StructureRecord) AlphaCarbons() []Coord {
	out := make([]Coord, 0, len(s.Residues))
	for i := range s.Residues {
		if c, ok := s.Residues[i].AlphaCarbon(); ok {
			out = append(out, c)
		}
	}
	return out
}

// Sequence reconstructs the one-letter sequence from the residue names.
func (s *StructureRecord) Sequence() string {
	var sb strings.Builder
	sb.Grow(len(s.Residues))
	for i := range s.Residues {
		sb.WriteByte(OneLetter(s.Residues[i].Name))
	}
	return sb.String()
}

// MeanBFactor returns the average residue B-factor, the structure-level
// pLDDT for predicted structures.  Returns 0 for an empty record.
func (s *StructureRecord) MeanBFactor() float64 {
	if len(s.Residues) == 0 {
		return 0
	}
	var sum float64
	for i := range s.Residues {
		sum += s.Residues[i].BFactor
	}
	return sum / float64(len(s.Residues))
}
