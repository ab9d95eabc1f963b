package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/report"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check sources for structural errors and broken references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			m := store.Model()
			res := curriculum.Validate(m).Merge(curriculum.CheckReferences(m))
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"sources": store.LastReport(), "result": res}); err != nil {
					return err
				}
			} else {
				printValidation(out, store.LastReport(), res)
			}

			if !res.Valid {
				return fmt.Errorf("curriculum is invalid: %d error(s)", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printValidation(w io.Writer, sources []curriculum.SourceResult, res curriculum.ValidationResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tAREAS\tSTATUS")
	for _, s := range sources {
		status := "ok"
		if !s.OK() {
			status = fmt.Sprintf("skipped at %s: %v", s.Stage, s.Err)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Areas, status)
	}
	tw.Flush()

	fmt.Fprintln(w)
	for _, f := range res.Errors {
		fmt.Fprintf(w, "ERROR   %s  %s (%s)\n", f.Code, f.Message, f.Path)
	}
	for _, f := range res.Warnings {
		fmt.Fprintf(w, "WARNING %s  %s (%s)\n", f.Code, f.Message, f.Path)
	}
	fmt.Fprintf(w, "valid: %t, %d error(s), %d warning(s)\n", res.Valid, len(res.Errors), len(res.Warnings))
}

func newTiersCmd(opts *rootOptions) *cobra.Command {
	var completed []string

	cmd := &cobra.Command{
		Use:   "tiers <discipline-id>",
		Short: "Print the tier layout of a discipline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			d, err := store.Discipline(args[0])
			if err != nil {
				return err
			}

			tree := progression.BuildTree(store.SkillsOfDiscipline(d.ID), progression.NewSet(completed...))
			out := cmd.OutOrStdout()

			source := "authored"
			if tree.Synthetic {
				source = "synthetic"
			}
			fmt.Fprintf(out, "%s (%d skills, %s prerequisites)\n", curriculum.CleanName(d.Name), tree.Stats.Total, source)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tPOS\tSKILL\tSTATUS\tREQUIRES")
			for _, n := range tree.Nodes {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", n.Tier, n.Position, n.SkillID, n.Status, strings.Join(n.Prerequisites, ", "))
			}
			tw.Flush()

			fmt.Fprintf(out, "progress: %d/%d completed, %d available (%.0f%%)\n",
				tree.Stats.Completed, tree.Stats.Total, tree.Stats.Available, tree.Stats.Percent)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&completed, "completed", nil, "skill ids already completed")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var difficulty string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find skills by name or description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := curriculum.Difficulty(strings.ToLower(difficulty))
			if level != "" && !level.Valid() {
				return fmt.Errorf("invalid difficulty %q", difficulty)
			}

			store, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SKILL\tDIFFICULTY\tTIME\tNAME")
			n := 0
			for _, s := range store.Search(query) {
				if level != "" && s.Difficulty != level {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Difficulty, s.EstimatedTime, s.Name)
				n++
			}
			tw.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "%d skill(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "only beginner, intermediate or advanced skills")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var completed []string

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write disciplines, skills and tiers to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			if err := report.WriteWorkbook(f, store, progression.NewSet(completed...)); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d disciplines, %d skills)\n",
				args[0], len(store.Disciplines()), len(store.Skills()))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&completed, "completed", nil, "skill ids already completed")
	return cmd
}
