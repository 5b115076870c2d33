// File: cmd/replay.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/observability"
	"github.com/sreeshanth-soma/erpScraper/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var selector string

	replayCmd := &cobra.Command{
		Use:   "replay [dump.html]",
		Short: "Re-run extraction over a saved page without a browser",
		Long: `Parses a page saved by a failed run (portal.debug_html_file by default), selects the
subject fragments with the subject_attendance_info selector and prints what each
fragment parses to. Nothing is stored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}

			path := cfg.Portal.DebugHTMLFile
			if len(args) == 1 {
				path = args[0]
			}
			if selector == "" {
				sels, err := config.LoadSelectors(cfg.Portal.SelectorsFile)
				if err != nil {
					return err
				}
				if selector, err = sels.Get(config.SelSubjectAttendanceInfo); err != nil {
					return err
				}
			}

			res, err := replay.File(path, selector, observability.GetLogger())
			if err != nil {
				return err
			}
			return printReplay(cmd.OutOrStdout(), res)
		},
	}

	replayCmd.Flags().StringVar(&selector, "selector", "", "fragment selector (default: subject_attendance_info from the selector file)")
	return replayCmd
}

func printReplay(out io.Writer, res replay.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAGMENT\tATTENDED\tTOTAL\tPORTAL %\tNOTE")
	for i, f := range res.Fragments {
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if f.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%v\n", id, f.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t\n", id, f.Fact.Attended, f.Fact.Total, f.Fact.Percentage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	agg := res.Aggregate
	pct := agg.Percentage().String()
	if agg.Percentage().IsKnown() {
		pct += "%"
	}
	_, err := fmt.Fprintf(out, "\nTotal: %d/%d attended, %s (%d parsed, %d skipped)\n",
		agg.Attended, agg.Total, pct, agg.Parsed, agg.Skipped)
	return err
}
