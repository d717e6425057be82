package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/foldbank/foldbank/internal/application/descriptor"
	"github.com/foldbank/foldbank/pkg/errors"
)

// descriptorComputer is the slice of the descriptor service the command
// needs.
type descriptorComputer interface {
	Compute(ctx context.Context, raw string) (*descriptor.Descriptors, error)
}

func newDescribeCmd(opts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "describe SEQUENCE",
		Short: "Compute geometric descriptors from a cached structure",
		Long: "describe reads the cached structure for the sequence and prints its\n" +
			"geometric descriptors as JSON.  It never triggers prediction; run\n" +
			"fold first for uncached sequences.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(opts)
			if err != nil {
				printErr(err)
				return err
			}
			defer app.Close()
			return runDescribe(cmd.Context(), app.Descriptor, args[0], kind, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "all",
		"descriptor kind: distances, quaternions, or all")
	return cmd
}

func runDescribe(ctx context.Context, svc descriptorComputer, sequence, kind string, w io.Writer) error {
	d, err := svc.Compute(ctx, sequence)
	if err != nil {
		return err
	}

	var payload interface{}
	switch kind {
	case "all":
		payload = d
	case "distances":
		payload = map[string]interface{}{
			"digest":    d.Digest,
			"distances": d.Distances,
		}
	case "quaternions":
		payload = map[string]interface{}{
			"digest":      d.Digest,
			"quaternions": d.Quaternions,
		}
	default:
		return errors.Newf(errors.ErrCodeBadRequest,
			"unknown descriptor kind %q", kind)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode descriptors: %w", err)
	}
	return nil
}
