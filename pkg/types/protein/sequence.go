// Package protein defines the shared value types for protein sequences.
// A Sequence is the identity key for every cached structure and derived
// descriptor, so it is immutable and validated at construction.
package protein

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/foldbank/foldbank/pkg/errors"
)

// Alphabet is the canonical 20-symbol amino-acid alphabet, one letter per
// residue type, in the conventional order.
const Alphabet = "ACDEFGHIKLMNPQRSTVWY"

// MaxLength is the longest sequence accepted for folding.  ESMFold-class
// models degrade sharply above ~1k residues and batch memory grows
// quadratically, so longer inputs are rejected up front.
const MaxLength = 1022

// ResidueSpacing is the fixed Cα-Cα bond spacing of an extended backbone,
// in angstroms.
const ResidueSpacing = 3.8

// Sequence is an ordered string over Alphabet.  Construct via NewSequence;
// a zero-value Sequence is invalid.
type Sequence string

// NewSequence validates s and returns it as a Sequence.  Lowercase input is
// accepted and normalised to uppercase.
func NewSequence(s string) (Sequence, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", errors.New(errors.ErrCodeSequenceEmpty, "sequence is empty")
	}
	if len(s) > MaxLength {
		return "", errors.Newf(errors.ErrCodeSequenceTooLong,
			"sequence length %d exceeds maximum %d", len(s), MaxLength)
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return "", errors.Newf(errors.ErrCodeSequenceInvalid,
				"invalid amino-acid symbol %q at position %d", s[i], i)
		}
	}
	return Sequence(s), nil
}

// String returns the raw one-letter sequence.
func (s Sequence) String() string { return string(s) }

// Len returns the number of residues.
func (s Sequence) Len() int { return len(s) }

// Digest returns the hex-encoded SHA-256 of the sequence content.  It is the
// content-addressed cache key: deterministic across runs and processes, with
// negligible collision probability over any realistic sequence population.
func (s Sequence) Digest() string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MaxPhysicalLength returns the theoretical maximum end-to-end extension of
// the fully extended backbone, in angstroms.
func (s Sequence) MaxPhysicalLength() float64 {
	return MaxPhysicalLength(s.Len())
}

// MaxPhysicalLength returns (n-1) * ResidueSpacing angstroms for a chain of
// n residues.  n must be >= 1; the result is meaningless otherwise.
func MaxPhysicalLength(n int) float64 {
	return float64(n-1) * ResidueSpacing
}
