package structure

import (
	"fmt"
	"sort"
	"strings"
)

// backboneOrder fixes the emission order of the backbone atoms so that
// serialization is deterministic; remaining atoms follow alphabetically.
var backboneOrder = map[string]int{"N": 0, "CA": 1, "C": 2, "O": 3}

func atomNames(r *Residue) []string {
	names := make([]string, 0, len(r.Atoms))
	for name := range r.Atoms {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iok := backboneOrder[names[i]]
		oj, jok := backboneOrder[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// Write serializes a StructureRecord as PDB ATOM records followed by TER and
// END.  The output round-trips through Parse; write-side fidelity beyond
// that (headers, REMARK records) is not attempted.
func Write(s *StructureRecord) []byte {
	var sb strings.Builder
	serial := 0
	for i := range s.Residues {
		res := &s.Residues[i]
		for _, name := range atomNames(res) {
			serial++
			c := res.Atoms[name]
			element := name[:1]
			fmt.Fprintf(&sb, "ATOM  %5d  %-3s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
				serial, name, res.Name, res.Chain, res.Index,
				c.X, c.Y, c.Z, 1.00, res.BFactor, element)
		}
	}
	sb.WriteString("TER\nEND\n")
	return []byte(sb.String())
}
