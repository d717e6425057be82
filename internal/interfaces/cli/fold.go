package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foldbank/foldbank/internal/application/fold"
	"github.com/foldbank/foldbank/pkg/errors"
)

// structureEnsurer is the slice of the fold service the command needs.
type structureEnsurer interface {
	Ensure(ctx context.Context, input fold.EnsureInput) ([]*fold.StructureResult, error)
}

// foldRow is the JSON output shape for one ensured sequence.
type foldRow struct {
	Sequence  string  `json:"sequence"`
	Digest    string  `json:"digest"`
	Residues  int     `json:"residues"`
	MeanPLDDT float64 `json:"mean_plddt"`
	FromCache bool    `json:"from_cache"`
}

func newFoldCmd(opts *RootOptions) *cobra.Command {
	var jsonOut bool
	var seqFile string

	cmd := &cobra.Command{
		Use:   "fold [SEQUENCE...]",
		Short: "Ensure structures for the given sequences are cached",
		Long: "fold validates each amino-acid sequence, predicts structures for the\n" +
			"ones not yet cached (one batched predictor call for all misses), and\n" +
			"prints a summary row per input.  Sequences come from the arguments,\n" +
			"from --file (one per line), or both.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sequences, err := gatherSequences(args, seqFile)
			if err != nil {
				printErr(err)
				return err
			}
			app, err := buildApp(opts)
			if err != nil {
				printErr(err)
				return err
			}
			defer app.Close()
			return runFold(cmd.Context(), app.Fold, sequences, cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text rows")
	cmd.Flags().StringVarP(&seqFile, "file", "f", "", "read sequences from file, one per line")
	return cmd
}

// gatherSequences merges positional arguments with the lines of the
// optional sequence file.  Blank lines and '#' comments are skipped.
func gatherSequences(args []string, path string) ([]string, error) {
	sequences := append([]string{}, args...)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open sequence file")
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			sequences = append(sequences, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read sequence file")
		}
	}
	if len(sequences) == 0 {
		return nil, errors.New(errors.ErrCodeBadRequest, "no sequences given: pass arguments or --file")
	}
	return sequences, nil
}

func runFold(ctx context.Context, svc structureEnsurer, sequences []string, w io.Writer, jsonOut bool) error {
	results, err := svc.Ensure(ctx, fold.EnsureInput{Sequences: sequences})
	if err != nil {
		return err
	}

	rows := make([]foldRow, len(results))
	for i, r := range results {
		rows[i] = foldRow{
			Sequence:  string(r.Sequence),
			Digest:    r.Digest,
			Residues:  len(r.Structure.Residues),
			MeanPLDDT: r.Structure.MeanBFactor(),
			FromCache: r.FromCache,
		}
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, row := range rows {
		origin := "predicted"
		if row.FromCache {
			origin = "cached"
		}
		fmt.Fprintf(w, "%s  %4d res  plddt %5.1f  %-9s  %s\n",
			row.Digest, row.Residues, row.MeanPLDDT, origin, row.Sequence)
	}
	return nil
}
