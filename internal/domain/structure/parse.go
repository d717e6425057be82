package structure

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/foldbank/foldbank/pkg/errors"
)

// Parse turns a serialized PDB structure into a StructureRecord.
//
// Only ATOM records are read; HETATM (waters, ligands) never contribute
// residues.  Atoms are grouped into residues by (chain, residue number) in
// file order, which for predictor output matches input sequence order.
// Duplicate atom names within a residue (alternate locations) keep the first
// occurrence.
func Parse(data []byte) (*StructureRecord, error) {
	record := &StructureRecord{}

	var cur *Residue
	var curBSum float64
	var curBCount int

	flush := func() {
		if cur == nil {
			return
		}
		if curBCount > 0 {
			cur.BFactor = curBSum / float64(curBCount)
		}
		record.Residues = append(record.Residues, *cur)
		cur = nil
		curBSum, curBCount = 0, 0
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024), 1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < 6 || strings.TrimSpace(line[0:6]) != "ATOM" {
			continue
		}
		if len(line) < 66 {
			return nil, errors.Newf(errors.ErrCodeStructureParse,
				"truncated ATOM record at line %d", lineNo)
		}

		// Fixed PDB columns, 0-based slices of the 1-based column spec.
		name := strings.TrimSpace(line[12:16])
		resName := strings.TrimSpace(line[17:20])
		chain := strings.TrimSpace(line[21:22])
		resSeq, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStructureParse,
				"invalid residue number").WithDetail("line " + strconv.Itoa(lineNo))
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if errX != nil || errY != nil || errZ != nil {
			return nil, errors.Newf(errors.ErrCodeStructureParse,
				"invalid coordinates at line %d", lineNo)
		}
		bfactor, _ := strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64)

		if cur == nil || cur.Chain != chain || cur.Index != resSeq {
			flush()
			cur = &Residue{
				Chain: chain,
				Name:  resName,
				Index: resSeq,
				Atoms: make(map[string]Coord, 8),
			}
		}
		if _, dup := cur.Atoms[name]; !dup {
			cur.Atoms[name] = Coord{X: x, Y: y, Z: z}
			curBSum += bfactor
			curBCount++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureParse, "failed to scan structure")
	}
	flush()

	if len(record.Residues) == 0 {
		return nil, errors.New(errors.ErrCodeStructureParse, "no ATOM records found")
	}
	return record, nil
}
