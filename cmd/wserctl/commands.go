package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aarondl/opt/omit"
	"github.com/spf13/cobra"

	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/internal/ingest"
)

var errNoResults = errors.New("no results file: pass --csv or set results_csv")

// filterFlags are the runner filter options shared by field commands.
type filterFlags struct {
	gender    string
	minAge    int
	maxAge    int
	minFinish float64
	maxFinish float64
	finishers bool
	bibs      []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.gender, "gender", "", "M, F or any")
	fs.IntVar(&f.minAge, "min-age", 0, "youngest age included")
	fs.IntVar(&f.maxAge, "max-age", 0, "oldest age included")
	fs.Float64Var(&f.minFinish, "min-finish", 0, "finish time lower bound in hours")
	fs.Float64Var(&f.maxFinish, "max-finish", 0, "finish time upper bound in hours, exclusive")
	fs.BoolVar(&f.finishers, "finishers", false, "only runners with a finish time")
	fs.StringSliceVar(&f.bibs, "bibs", nil, "restrict to these bibs")
}

func (f *filterFlags) filter(cmd *cobra.Command) (model.RunnerFilter, error) {
	g, err := types.ParseGender(f.gender)
	if err != nil {
		return model.RunnerFilter{}, err
	}
	out := model.RunnerFilter{Gender: g, FinishersOnly: f.finishers}
	fs := cmd.Flags()
	if fs.Changed("min-age") {
		out.MinAge = omit.From(f.minAge)
	}
	if fs.Changed("max-age") {
		out.MaxAge = omit.From(f.maxAge)
	}
	if fs.Changed("min-finish") {
		out.MinFinishHours = omit.From(f.minFinish)
	}
	if fs.Changed("max-finish") {
		out.MaxFinishHours = omit.From(f.maxFinish)
	}
	for _, b := range f.bibs {
		out.Bibs = append(out.Bibs, types.RunnerID(strings.TrimSpace(b)))
	}
	return out, nil
}

func newIngestCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load a results CSV into the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			if g.loaded == nil {
				return errNoResults
			}
			return g.print(cmd.OutOrStdout(), *g.loaded)
		},
	}
}

func newGenerateCmd(g *globals) *cobra.Command {
	var (
		out     string
		runners int
		seed    uint64
		dnf     float64
		gaps    float64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic results CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			c, err := cfg.BuildCourse()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			n, err := ingest.Generate(cmd.Context(), w, c,
				ingest.WithRunners(runners),
				ingest.WithSeed(seed),
				ingest.WithDNFRate(dnf),
				ingest.WithGapRate(gaps),
			)
			if err != nil {
				return err
			}
			if w != cmd.OutOrStdout() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d runners to %s\n", n, out)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	fs.IntVar(&runners, "runners", 369, "number of starters")
	fs.Uint64Var(&seed, "seed", 1, "random seed")
	fs.Float64Var(&dnf, "dnf-rate", 0.2, "share of runners who drop")
	fs.Float64Var(&gaps, "gap-rate", 0.02, "chance an intermediate split is missing")
	return cmd
}

func newSearchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "search <bib|name>",
		Short: "Find runners by bib, first name, last name or full name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			found, err := svc.FindRunner(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), found)
		},
	}
}

func newProfileCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <bib|name>",
		Short: "Show the pace profile of one runner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			ctx := cmd.Context()
			found, err := svc.FindRunner(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			series, err := svc.BuildProfile(ctx, found[0].ID)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), service.RunnerPace{Runner: found[0], Series: series})
		},
	}
}

func newCompareCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Compare the pace of two runners",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			cmp, err := svc.CompareRunners(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), cmp)
		},
	}
}

func newFieldCmd(g *globals) *cobra.Command {
	var (
		ff     filterFlags
		runner string
	)
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Average pace of a filtered field, optionally next to one runner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := ff.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			if runner != "" {
				cmp, err := svc.CompareToField(cmd.Context(), runner, filter)
				if err != nil {
					return err
				}
				return g.print(cmd.OutOrStdout(), cmp)
			}
			agg, err := svc.FieldPace(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), agg)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&runner, "runner", "", "runner to compare against the field")
	return cmd
}

func newSummaryCmd(g *globals) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Age and finish time statistics of a filtered field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := ff.filter(cmd)
			if err != nil {
				return err
			}
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			sum, err := svc.SummarizeField(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), sum)
		},
	}
	ff.register(cmd)
	return cmd
}

func newBinsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bins",
		Short: "Finish time and age distributions",
	}

	var (
		edges  []float64
		gender string
	)
	finish := &cobra.Command{
		Use:   "finish",
		Short: "Count finishers per finish time bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gv, err := types.ParseGender(gender)
			if err != nil {
				return err
			}
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			d, err := svc.BinByFixedEdges(cmd.Context(), edges, gv)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), d)
		},
	}
	finish.Flags().Float64SliceVar(&edges, "edges", []float64{0, 16, 18, 20, 22, 24, 26, 28, 30}, "increasing bin edges in hours")
	finish.Flags().StringVar(&gender, "gender", "", "M, F or any")

	var (
		bins      int
		ageGender string
	)
	age := &cobra.Command{
		Use:   "age",
		Short: "Average finish time per age bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gv, err := types.ParseGender(ageGender)
			if err != nil {
				return err
			}
			svc, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer svc.Stop()
			d, err := svc.BinByComputedAge(cmd.Context(), bins, gv)
			if err != nil {
				return err
			}
			return g.print(cmd.OutOrStdout(), d)
		},
	}
	age.Flags().IntVar(&bins, "bins", 10, "number of age bins")
	age.Flags().StringVar(&ageGender, "gender", "", "M, F or any")

	cmd.AddCommand(finish, age)
	return cmd
}

// print writes v as JSON or as a table.
func (g *globals) print(w io.Writer, v any) error {
	if g.asJSON {
		return printJSON(w, v)
	}
	return printTable(w, v)
}
