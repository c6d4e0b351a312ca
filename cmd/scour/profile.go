package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TFMV/scour/api"
)

// ProfileOptions represents the options for the profile command.
type ProfileOptions struct {
	Input  InputOptions
	Format string
}

func newProfileCommand(g *GlobalOptions) *cobra.Command {
	options := &ProfileOptions{Format: "text"}

	cmd := &cobra.Command{
		Use:   "profile [flags] INPUT",
		Short: "Profile a dataset and score its quality without cleaning it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.Format != "text" && options.Format != "json" {
				return fmt.Errorf("unknown format %q (text, json)", options.Format)
			}
			if err := g.load(); err != nil {
				return err
			}
			return runProfile(cmd, g, options, args[0])
		},
	}

	options.Input.addFlags(cmd)
	cmd.Flags().StringVarP(&options.Format, "format", "f", options.Format, "Output format (text, json)")

	return cmd
}

func runProfile(cmd *cobra.Command, g *GlobalOptions, options *ProfileOptions, input string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	engine, err := g.engine()
	if err != nil {
		return err
	}
	datasets, err := options.Input.load(ctx, input)
	if err != nil {
		return err
	}

	out := make([]api.ProfileResponse, 0, len(datasets))
	for _, ds := range datasets {
		profiles, assessment, err := engine.Profile(ds)
		if err != nil {
			return fmt.Errorf("%s: %w", ds.Name, err)
		}
		out = append(out, api.ProfileResponse{
			Dataset:    ds.Name,
			Score:      assessment.Score,
			Components: assessment.Components,
			Issues:     assessment.Issues,
			Profiles:   profiles,
		})
	}

	w := cmd.OutOrStdout()
	if options.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(out) == 1 {
			return enc.Encode(out[0])
		}
		return enc.Encode(out)
	}
	for i, p := range out {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printProfile(w, p); err != nil {
			return err
		}
	}
	return nil
}

func printProfile(w io.Writer, p api.ProfileResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Dataset:\t%s\n", p.Dataset)
	fmt.Fprintf(tw, "Score:\t%.1f%%\n", p.Score*100)
	fmt.Fprintf(tw, "Components:\tcompleteness %.3f, uniqueness %.3f, consistency %.3f, duplicates %.3f\n",
		p.Components.Completeness, p.Components.Uniqueness, p.Components.Consistency, p.Components.DuplicateRows)

	fmt.Fprintln(tw, "\nCOLUMN\tTYPE\tMISSING\tUNIQUE\tOUTLIERS\tSTORAGE\tOPTIMAL")
	for _, c := range p.Profiles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			c.Name, c.InferredType, c.MissingCount, c.UniqueCount, len(c.OutlierIndices), c.Storage, c.OptimalStorage)
	}

	if len(p.Issues) > 0 {
		fmt.Fprintln(tw, "\nISSUE\tCOLUMN\tSEVERITY\tROWS")
		for _, issue := range p.Issues {
			col := issue.Column
			if col == "" {
				col = "<dataset>"
			}
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\n", issue.Kind, col, issue.Severity, issue.AffectedRows)
		}
	}
	return tw.Flush()
}
