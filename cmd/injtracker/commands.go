package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"injtracker/internal/app"
	"injtracker/internal/domain"
)

// errSiteInUse stops add when the chosen site is still recovering.
var errSiteInUse = errors.New("site was used recently; pass --force to record anyway")

// withRuntime opens the runtime for the duration of fn.
func withRuntime(flags *rootFlags, fn func(rt *runtime) error) error {
	rt, err := openRuntime(flags, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// siteFlags reads --quadrant or --x/--y.
func siteFlags(cmd *cobra.Command) (domain.Site, bool, error) {
	if qs, _ := cmd.Flags().GetString("quadrant"); qs != "" {
		q, err := domain.ParseQuadrant(qs)
		if err != nil {
			return domain.Site{}, false, err
		}
		return domain.QuadrantSite(q), true, nil
	}
	if cmd.Flags().Changed("x") && cmd.Flags().Changed("y") {
		x, _ := cmd.Flags().GetFloat64("x")
		y, _ := cmd.Flags().GetFloat64("y")
		return domain.PointSite(x, y), true, nil
	}
	return domain.Site{}, false, nil
}

func addSiteFlags(cmd *cobra.Command) {
	cmd.Flags().String("quadrant", "", "quadrant: UL, UR, LL or LR")
	cmd.Flags().Float64("x", 0, "normalized x coordinate on the body image")
	cmd.Flags().Float64("y", 0, "normalized y coordinate on the body image")
}

// --- add ---

func newAddCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an injection",
		Long: `Record an injection at a quadrant or at a point on the body image.

Examples:
  injtracker add --quadrant UL --dose 5
  injtracker add --x 0.42 --y 0.55 --weight 81.3 --notes "after breakfast"
  injtracker add --quadrant LR --days-ago 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			site, ok, err := siteFlags(cmd)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("one of --quadrant or --x and --y is required")
			}
			dose, _ := cmd.Flags().GetString("dose")
			notes, _ := cmd.Flags().GetString("notes")
			dateStr, _ := cmd.Flags().GetString("date")
			daysAgo, _ := cmd.Flags().GetInt("days-ago")
			force, _ := cmd.Flags().GetBool("force")

			in := app.NewInjection{Site: site, Dose: domain.Dose(dose), Notes: notes}
			switch {
			case dateStr != "":
				if in.Date, err = domain.ParseDate(dateStr); err != nil {
					return err
				}
			case daysAgo > 0:
				in.Date = time.Now().AddDate(0, 0, -daysAgo)
			}
			if cmd.Flags().Changed("weight") {
				w, _ := cmd.Flags().GetFloat64("weight")
				in.Weight = &w
			}

			return withRuntime(flags, func(rt *runtime) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				var warning *domain.Warning
				if q, isQuadrant := site.Quadrant(); isQuadrant {
					warning, err = rt.recommend.QuadrantWarning(ctx, q)
				} else {
					x, y, _ := site.Point()
					warning, err = rt.recommend.ProximityWarning(ctx, x, y)
				}
				if err != nil {
					return err
				}
				if warning != nil {
					printWarning(out, flags.noColor, "%s", warning.Message)
					if !force {
						return errSiteInUse
					}
				}

				inj, err := rt.injections.Record(ctx, in)
				if err != nil {
					return err
				}
				printSuccess(out, flags.noColor, "Recorded %s mg at %s (%s)", inj.Dose, inj.Site, inj.ID)
				return nil
			})
		},
	}
	addSiteFlags(cmd)
	cmd.Flags().String("dose", "", "dose in mg (defaults to the previous dose)")
	cmd.Flags().String("date", "", "when the injection happened (RFC 3339 or YYYY-MM-DD[THH:MM])")
	cmd.Flags().Int("days-ago", 0, "record the injection this many days in the past")
	cmd.Flags().Float64("weight", 0, "body weight in kg")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().Bool("force", false, "record even when the site is still recovering")
	return cmd
}

// --- list ---

func newListCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List injections, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withRuntime(flags, func(rt *runtime) error {
				items, err := rt.injections.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(domain.Document{Injections: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "No injections recorded yet.")
					return nil
				}
				for _, inj := range items {
					fmt.Fprintln(out, formatInjection(inj))
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "print the history as a JSON document")
	return cmd
}

// --- remove ---

func newRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an injection by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(flags, func(rt *runtime) error {
				ok, err := rt.injections.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrNotFound, args[0])
				}
				printSuccess(cmd.OutOrStdout(), flags.noColor, "Removed %s", args[0])
				return nil
			})
		},
	}
}

// --- import / export ---

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Merge an exported document into the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}
			return withRuntime(flags, func(rt *runtime) error {
				res, err := rt.injections.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), flags.noColor, "Imported %d new injection(s)", res.Added)
				if res.Skipped > 0 {
					printWarning(cmd.OutOrStdout(), flags.noColor, "Skipped %d unreadable record(s)", res.Skipped)
				}
				return nil
			})
		},
	}
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history as a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return withRuntime(flags, func(rt *runtime) error {
				name, data, err := rt.injections.Export(cmd.Context())
				if err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if output == "" {
					output = name
				}
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}
				printSuccess(cmd.OutOrStdout(), flags.noColor, "Exported to %s", output)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default injections-YYYYMMDD.json, - for stdout)")
	return cmd
}

// --- clear ---

func newClearCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to clear the history without --yes")
			}
			return withRuntime(flags, func(rt *runtime) error {
				if err := rt.injections.Clear(cmd.Context()); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), flags.noColor, "History cleared")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "confirm deleting every injection")
	return cmd
}

// --- summary ---

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the injection count, last dose and next due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(flags, func(rt *runtime) error {
				sum, err := rt.injections.Summary(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printStatus(out, flags.noColor, "Injections", "%d", sum.Count)
				if sum.DaysSinceLast == nil {
					return nil
				}
				printStatus(out, flags.noColor, "Last", "%d day(s) ago, %s mg, %s", *sum.DaysSinceLast, sum.LastDose, sum.LastSite)
				if sum.NextDue != nil {
					printStatus(out, flags.noColor, "Next", "%s", describeNextDue(*sum.NextDue))
				}
				return nil
			})
		},
	}
}

func describeNextDue(n domain.NextDue) string {
	if n.DueNow {
		return "due now"
	}
	return fmt.Sprintf("in %d day(s), %s", n.DaysLeft, n.Date.Local().Format("Mon 2006-01-02"))
}

// --- recommendations ---

func newQuadrantsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quadrants",
		Short: "Score each quadrant and suggest the best one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(flags, func(rt *runtime) error {
				scores, err := rt.recommend.Quadrants(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, q := range domain.Quadrants {
					v := scores[q]
					bar := scoreColor(flags.noColor, domain.ValueScore(v), scoreBar(v))
					fmt.Fprintf(out, "%s %-12s %s %.2f\n", q, q.Label(), bar, v)
				}
				best := domain.BestQuadrant(scores)
				printSuccess(out, flags.noColor, "Suggested: %s (%s)", best, best.Label())
				return nil
			})
		},
	}
}

func newScoreCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a point on the body image",
		RunE: func(cmd *cobra.Command, args []string) error {
			x, _ := cmd.Flags().GetFloat64("x")
			y, _ := cmd.Flags().GetFloat64("y")
			return withRuntime(flags, func(rt *runtime) error {
				s, err := rt.recommend.ScoreAt(cmd.Context(), x, y)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case s.IsOutside():
					fmt.Fprintln(out, "outside the injection area")
				case s.IsExcluded():
					fmt.Fprintln(out, scoreColor(flags.noColor, s, "inside the exclusion zone"))
				default:
					v, _ := s.Value()
					fmt.Fprintf(out, "%s %.2f\n", scoreColor(flags.noColor, s, scoreBar(v)), v)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64("x", 0, "normalized x coordinate")
	cmd.Flags().Float64("y", 0, "normalized y coordinate")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}

func newWarnCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warn",
		Short: "Check whether a site was used too recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			site, ok, err := siteFlags(cmd)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("one of --quadrant or --x and --y is required")
			}
			return withRuntime(flags, func(rt *runtime) error {
				var w *domain.Warning
				if q, isQuadrant := site.Quadrant(); isQuadrant {
					w, err = rt.recommend.QuadrantWarning(cmd.Context(), q)
				} else {
					x, y, _ := site.Point()
					w, err = rt.recommend.ProximityWarning(cmd.Context(), x, y)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if w == nil {
					printSuccess(out, flags.noColor, "No recent injection near %s", site)
					return nil
				}
				printWarning(out, flags.noColor, "%s", w.Message)
				return nil
			})
		},
	}
	addSiteFlags(cmd)
	return cmd
}

func newNextCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show when the next dose is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(flags, func(rt *runtime) error {
				next, ok, err := rt.recommend.NextDue(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, "No injections recorded yet.")
					return nil
				}
				if next.DueNow {
					printWarning(out, flags.noColor, "Next dose is due now")
					return nil
				}
				fmt.Fprintf(out, "Next dose %s\n", describeNextDue(next))
				return nil
			})
		},
	}
}

func newFieldCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Draw the recommendation heatmap",
		Long: `Draw the recommendation heatmap of the body image.

Each cell shows the score from 0 (just used) to 9 (fully healed); x marks the
exclusion zone and blanks lie outside the injection area.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, _ := cmd.Flags().GetInt("resolution")
			return withRuntime(flags, func(rt *runtime) error {
				f, err := rt.recommend.Field(cmd.Context(), res)
				if err != nil {
					return err
				}
				renderField(cmd.OutOrStdout(), flags.noColor, f)
				return nil
			})
		},
	}
	cmd.Flags().Int("resolution", 0, "grid size (default from tracker.heatmap_resolution)")
	return cmd
}
